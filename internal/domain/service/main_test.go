package service

import (
	"testing"

	"go.uber.org/goleak"
)

// ワーカープールのゴルーチンが実行後に残らないことを確認する
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
