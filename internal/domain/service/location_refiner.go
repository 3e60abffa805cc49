package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"LetHimCook-App/internal/domain/helper"
	"LetHimCook-App/internal/domain/model"
	"LetHimCook-App/internal/domain/repository"
)

const (
	// 位置補正の信頼度（補正前後のずれに応じて決める）
	confidenceHigh   = 0.9
	confidenceMedium = 0.6
	confidenceLow    = 0.3

	highConfidenceOffsetMeters   = 25.0
	mediumConfidenceOffsetMeters = 100.0
)

// RefinedLocation は住所・座標の補正結果
type RefinedLocation struct {
	Coordinates  model.LatLng
	Address      string
	Confidence   float64
	OffsetMeters float64
	Notes        []string
	Resolved     bool // ジオコーダで住所が得られた場合true
}

// ConfidenceForOffset は補正前後のずれから信頼度を決める
func ConfidenceForOffset(offsetMeters float64) float64 {
	switch {
	case offsetMeters < highConfidenceOffsetMeters:
		return confidenceHigh
	case offsetMeters < mediumConfidenceOffsetMeters:
		return confidenceMedium
	default:
		return confidenceLow
	}
}

// locationRefiner はジオコーダを使って店舗の住所と座標を補正する
type locationRefiner struct {
	geocoder   repository.Geocoder
	chainNames []string
	postal     *regexp.Regexp
	biasMeters float64
	call       callSettings
}

// isChain はチェーン店名を含むか判定する（同名店舗が近くに複数あり得る）
func (r *locationRefiner) isChain(name string) bool {
	lower := strings.ToLower(name)
	for _, c := range r.chainNames {
		if c != "" && strings.Contains(lower, c) {
			return true
		}
	}
	return false
}

// biasBound は店舗の周囲に検索範囲を作る
func (r *locationRefiner) biasBound(p model.LatLng) orb.Bound {
	pt := p.ToOrbPoint()
	return orb.Bound{Min: pt, Max: pt}.Pad(helper.DegreesForMeters(r.biasMeters))
}

// refine は補正を行う。どの方法でも住所が得られない場合は合成した住所を返す
func (r *locationRefiner) refine(ctx context.Context, v *model.Venue) RefinedLocation {
	if r.geocoder == nil {
		return r.fallback(v, "geocoder not configured; address synthesized")
	}

	var hit *model.AddressRecord
	if r.isChain(v.Name) {
		hit = r.searchNearest(ctx, v)
	} else {
		hit = r.reverse(ctx, v)
		if hit == nil {
			hit = r.searchNearest(ctx, v)
		}
	}
	if hit == nil {
		return r.fallback(v, "no geocoding match; address synthesized")
	}

	offset := helper.HaversineMeters(v.Coordinates, hit.Coordinates)
	address := strings.TrimSpace(hit.DisplayName)
	if address == "" {
		address = r.synthesize(v)
	}
	return RefinedLocation{
		Coordinates:  hit.Coordinates,
		Address:      address,
		Confidence:   ConfidenceForOffset(offset),
		OffsetMeters: offset,
		Resolved:     true,
	}
}

func (r *locationRefiner) reverse(ctx context.Context, v *model.Venue) *model.AddressRecord {
	rec, err := helper.RetryWithBackoff(ctx, r.call.retry, func(ctx context.Context) (*model.AddressRecord, error) {
		if err := r.call.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
		callCtx, cancel := context.WithTimeout(ctx, r.call.timeout)
		defer cancel()

		helper.CountRequest(ctx, model.RequestKindGeocoding)
		return r.geocoder.ReverseGeocode(callCtx, v.Coordinates)
	})
	if err != nil {
		r.call.logger.Debug("逆ジオコーディングに失敗", zap.String("venue", v.ID), zap.Error(err))
		return nil
	}
	if rec == nil || rec.Coordinates.Validate() != nil {
		return nil
	}
	return rec
}

// searchNearest は店舗周辺で名前検索し、最も近い結果を返す
func (r *locationRefiner) searchNearest(ctx context.Context, v *model.Venue) *model.AddressRecord {
	bound := r.biasBound(v.Coordinates)
	hits, err := helper.RetryWithBackoff(ctx, r.call.retry, func(ctx context.Context) ([]model.AddressRecord, error) {
		if err := r.call.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
		callCtx, cancel := context.WithTimeout(ctx, r.call.timeout)
		defer cancel()

		helper.CountRequest(ctx, model.RequestKindGeocoding)
		return r.geocoder.Search(callCtx, v.Name, bound)
	})
	if err != nil {
		r.call.logger.Debug("名前検索に失敗", zap.String("venue", v.ID), zap.Error(err))
		return nil
	}

	var nearest *model.AddressRecord
	best := 0.0
	for i := range hits {
		h := &hits[i]
		if h.Coordinates.Validate() != nil || !bound.Contains(h.Coordinates.ToOrbPoint()) {
			continue
		}
		d := helper.HaversineMeters(v.Coordinates, h.Coordinates)
		if nearest == nil || d < best {
			nearest, best = h, d
		}
	}
	return nearest
}

func (r *locationRefiner) fallback(v *model.Venue, note string) RefinedLocation {
	return RefinedLocation{
		Coordinates: v.Coordinates,
		Address:     r.synthesize(v),
		Confidence:  confidenceLow,
		Notes:       []string{note},
	}
}

// synthesize は「店舗名, near 緯度, 経度」に郵便番号を添えた住所を作る
func (r *locationRefiner) synthesize(v *model.Venue) string {
	name := strings.TrimSpace(v.Name)
	if name == "" {
		name = "Unnamed venue"
	}
	address := fmt.Sprintf("%s, near %.5f, %.5f", name, v.Coordinates.Lat, v.Coordinates.Lng)
	if code := r.postalCode(v); code != "" {
		address += ", postal code " + code
	}
	return address
}

// postalCode は店舗の住所・説明・AIの位置情報から郵便番号を探す
func (r *locationRefiner) postalCode(v *model.Venue) string {
	if r.postal == nil {
		return ""
	}
	texts := []string{v.Address, v.Description}
	if v.Validation != nil {
		texts = append(texts, v.Validation.LocationText)
	}
	for _, t := range texts {
		m := r.postal.FindStringSubmatch(t)
		if m == nil {
			continue
		}
		if len(m) > 1 && m[1] != "" {
			return m[1]
		}
		return m[0]
	}
	return ""
}
