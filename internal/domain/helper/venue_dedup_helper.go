package helper

import "LetHimCook-App/internal/domain/model"

// VenueDedupSet は1回の検索で既に見つかった店舗を記録する
// プロバイダIDと「名前+座標」の両方で照合し、別ソースから届いた同一店舗も重複として扱う
type VenueDedupSet struct {
	ids  map[string]struct{}
	keys map[string]struct{}
}

// NewVenueDedupSet は空の重複排除セットを作成する
func NewVenueDedupSet() *VenueDedupSet {
	return &VenueDedupSet{
		ids:  make(map[string]struct{}),
		keys: make(map[string]struct{}),
	}
}

// Add はレコードを登録し、初見であればIDとtrueを返す
// 既出の場合はfalseを返す
func (s *VenueDedupSet) Add(rec model.VenueRecord) (string, bool) {
	id := VenueID(rec)
	key := NameCoordinateKey(rec.Name, rec.Coordinates)

	_, seenID := s.ids[id]
	_, seenKey := s.keys[key]
	if seenID || seenKey {
		return id, false
	}
	s.ids[id] = struct{}{}
	s.keys[key] = struct{}{}
	return id, true
}

// Len は登録済みの店舗数
func (s *VenueDedupSet) Len() int {
	return len(s.ids)
}
