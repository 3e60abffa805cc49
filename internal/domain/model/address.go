package model

import (
	"time"
)

// AddressRecord ジオコーダが返す住所情報
type AddressRecord struct {
	DisplayName string `json:"display_name"`
	Coordinates LatLng `json:"coordinates"`
	PostalCode  string `json:"postal_code,omitempty"`
}

// VenueSummary AI検証に渡す店舗の要約（バッチ内の番号は1始まり）
type VenueSummary struct {
	Index       int
	Name        string
	Categories  []string
	Address     string
	Coordinates LatLng
	Description string
}

// StoredReport 保存されたレポート（TTL付きの不透明なドキュメント）
type StoredReport struct {
	ReportID   string    `json:"report_id"`
	RunID      string    `json:"run_id"`
	ReportText string    `json:"report_text"`
	Accepted   int       `json:"accepted"`
	Rejected   int       `json:"rejected"`
	CreatedAt  time.Time `json:"created_at"`
	ExpireAt   time.Time `json:"expire_at"`
}

// FirestoreVenueReport Firestore保存用の構造体
type FirestoreVenueReport struct {
	RunID      string    `firestore:"runId"`
	ReportText string    `firestore:"reportText"`
	Accepted   int       `firestore:"accepted"`
	Rejected   int       `firestore:"rejected"`
	CreatedAt  time.Time `firestore:"createdAt"`
	ExpireAt   time.Time `firestore:"expireAt"` // TTLポリシーで自動削除
}

// ToFirestoreVenueReport Firestore保存用に変換
func (r *StoredReport) ToFirestoreVenueReport() *FirestoreVenueReport {
	return &FirestoreVenueReport{
		RunID:      r.RunID,
		ReportText: r.ReportText,
		Accepted:   r.Accepted,
		Rejected:   r.Rejected,
		CreatedAt:  r.CreatedAt,
		ExpireAt:   r.ExpireAt,
	}
}

// ToStoredReport Firestoreのドキュメントから復元
func (f *FirestoreVenueReport) ToStoredReport(reportID string) *StoredReport {
	return &StoredReport{
		ReportID:   reportID,
		RunID:      f.RunID,
		ReportText: f.ReportText,
		Accepted:   f.Accepted,
		Rejected:   f.Rejected,
		CreatedAt:  f.CreatedAt,
		ExpireAt:   f.ExpireAt,
	}
}
