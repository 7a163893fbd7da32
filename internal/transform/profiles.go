package transform

import (
	"sort"
	"strings"

	"github.com/guttosm/cryptopulse/internal/domain/models"
)

// DecodeProfiles types raw.user_profiles rows.
func DecodeProfiles(rows []models.RawRow) []models.UserProfile {
	out := make([]models.UserProfile, 0, len(rows))
	for _, r := range rows {
		p := models.UserProfile{
			UserID:     text(r, "user_id"),
			Email:      text(r, "email"),
			FirstName:  text(r, "first_name"),
			LastName:   text(r, "last_name"),
			Country:    text(r, "country"),
			Tier:       text(r, "tier"),
			KYCStatus:  text(r, "kyc_status"),
			IngestedAt: r.IngestedAt,
			SourceFile: r.SourceFile,
			RowSeq:     r.Seq,
		}
		if v, ok := r.Get("date_of_birth"); ok {
			p.DateOfBirth = ParseDate(v)
		}
		out = append(out, p)
	}
	return out
}

// LatestProfiles keeps, per user id, the profile with the latest ingestion
// timestamp. Ties on the timestamp go to the highest row sequence, i.e. the
// row inserted last. Profiles without a user id are dropped. The result is
// ordered by user id.
func LatestProfiles(profiles []models.UserProfile) []models.UserProfile {
	latest := make(map[string]models.UserProfile, len(profiles))
	for _, p := range profiles {
		if p.UserID == "" {
			continue
		}
		cur, ok := latest[p.UserID]
		if !ok || newer(p, cur) {
			latest[p.UserID] = p
		}
	}

	out := make([]models.UserProfile, 0, len(latest))
	for _, p := range latest {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func newer(a, b models.UserProfile) bool {
	if !a.IngestedAt.Equal(b.IngestedAt) {
		return a.IngestedAt.After(b.IngestedAt)
	}
	return a.RowSeq > b.RowSeq
}

func text(r models.RawRow, col string) string {
	v, _ := r.Get(col)
	return strings.TrimSpace(v)
}
