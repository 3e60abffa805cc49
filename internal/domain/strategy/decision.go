package strategy

import (
	"fmt"
	"strings"

	"LetHimCook-App/internal/domain/model"
)

const (
	// MinOperationalConfidence 営業中の確信度がこれ未満かつYESでない場合は除外
	MinOperationalConfidence = 4
	// MinAddressQuality 住所の品質がこれ未満の場合は除外
	MinAddressQuality = 2
)

// Decision は1件の判定に対する採否
type Decision struct {
	Accept   bool
	Reason   string // 除外時の理由、または注記
	FailOpen bool   // 判定が無いまま許容した場合true
}

// Decide は判定結果から採否を決める
// 判定が無い場合は許容する（取りこぼしより誤検出を許す運用方針）
func Decide(j *model.ValidationResult) Decision {
	if j == nil {
		return Decision{
			Accept:   true,
			Reason:   "no validation judgment returned; accepted by fail-open policy",
			FailOpen: true,
		}
	}

	if j.Status == model.StatusNo {
		rationale := strings.TrimSpace(j.Rationale)
		if rationale == "" {
			rationale = "no rationale given"
		}
		return Decision{Reason: fmt.Sprintf("validation status NO: %s", rationale)}
	}

	if j.OperationalConfidence >= 0 && j.OperationalConfidence < MinOperationalConfidence && j.Status != model.StatusYes {
		return Decision{Reason: fmt.Sprintf("operational confidence %d/10 is below %d with status %s",
			j.OperationalConfidence, MinOperationalConfidence, j.Status)}
	}

	if j.AddressQuality >= 0 && j.AddressQuality < MinAddressQuality {
		return Decision{Reason: fmt.Sprintf("address quality %d/10 is below %d", j.AddressQuality, MinAddressQuality)}
	}

	return Decision{Accept: true}
}
