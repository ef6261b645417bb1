// Package catalog turns a user's task list into the list shown to them:
// filtered, sorted or recommendation-ranked according to a persisted
// per-user FilterState.
package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/codequest/internal/domain"
)

// SortKey selects the manual ordering of the "all" view
type SortKey string

const (
	SortNone        SortKey = ""
	SortAlphaAsc    SortKey = "alpha_asc"
	SortAlphaDesc   SortKey = "alpha_desc"
	SortXPAsc       SortKey = "xp_asc"
	SortXPDesc      SortKey = "xp_desc"
	SortPointsAsc   SortKey = "points_asc"
	SortPointsDesc  SortKey = "points_desc"
	SortCreatedAsc  SortKey = "created_asc"
	SortCreatedDesc SortKey = "created_desc"
)

// SortKeys lists every selectable sort key
var SortKeys = []SortKey{
	SortAlphaAsc, SortAlphaDesc,
	SortXPAsc, SortXPDesc,
	SortPointsAsc, SortPointsDesc,
	SortCreatedAsc, SortCreatedDesc,
}

// Valid reports whether k is SortNone or a known key
func (k SortKey) Valid() bool {
	if k == SortNone {
		return true
	}
	for _, known := range SortKeys {
		if k == known {
			return true
		}
	}
	return false
}

// RecommendationFilter switches between the full list and the recommended ranking
type RecommendationFilter string

const (
	ShowAll         RecommendationFilter = "all"
	ShowRecommended RecommendationFilter = "recommended"
)

// Valid reports whether f is a known mode
func (f RecommendationFilter) Valid() bool {
	return f == ShowAll || f == ShowRecommended
}

// FilterState is the user's task list configuration. Empty string
// filters match everything.
type FilterState struct {
	TypeFilter           domain.TaskType      `json:"typeFilter"`
	LangFilter           string               `json:"langFilter"`
	DiffFilter           domain.Difficulty    `json:"diffFilter"`
	SortBy               SortKey              `json:"sortBy"`
	SearchQuery          string               `json:"searchQuery"`
	HideCompleted        bool                 `json:"hideCompleted"`
	RecommendationFilter RecommendationFilter `json:"recommendationFilter"`
}

// DefaultFilterState returns the unfiltered "all" view
func DefaultFilterState() FilterState {
	return FilterState{RecommendationFilter: ShowAll}
}

// Recommended reports whether the recommended ranking is active
func (s FilterState) Recommended() bool {
	return s.RecommendationFilter == ShowRecommended
}

// IsDefault reports whether s matches the default state
func (s FilterState) IsDefault() bool {
	return s == DefaultFilterState()
}

// UnmarshalJSON decodes field by field. A field that is missing, has the
// wrong JSON type or holds an unknown enum value keeps its default; only
// input that is not a JSON object is an error.
func (s *FilterState) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode filter state: %w", err)
	}

	st := DefaultFilterState()

	var str string
	if decodeField(raw, "typeFilter", &str) && (str == "" || domain.TaskType(str).Valid()) {
		st.TypeFilter = domain.TaskType(str)
	}
	str = ""
	if decodeField(raw, "langFilter", &str) {
		st.LangFilter = str
	}
	str = ""
	if decodeField(raw, "diffFilter", &str) && (str == "" || domain.Difficulty(str).Valid()) {
		st.DiffFilter = domain.Difficulty(str)
	}
	str = ""
	if decodeField(raw, "sortBy", &str) && SortKey(str).Valid() {
		st.SortBy = SortKey(str)
	}
	str = ""
	if decodeField(raw, "searchQuery", &str) {
		st.SearchQuery = str
	}
	var hide bool
	if decodeField(raw, "hideCompleted", &hide) {
		st.HideCompleted = hide
	}
	str = ""
	if decodeField(raw, "recommendationFilter", &str) && RecommendationFilter(str).Valid() {
		st.RecommendationFilter = RecommendationFilter(str)
	}

	*s = st
	return nil
}

func decodeField(raw map[string]json.RawMessage, key string, dst any) bool {
	v, ok := raw[key]
	if !ok {
		return false
	}
	return json.Unmarshal(v, dst) == nil
}

// DecodeFilterState decodes persisted filter data. Corrupt data yields
// the default state together with the decode error.
func DecodeFilterState(data []byte) (FilterState, error) {
	var st FilterState
	if err := json.Unmarshal(data, &st); err != nil {
		return DefaultFilterState(), err
	}
	return st, nil
}

// ParseSortKey validates user input for a sort key
func ParseSortKey(s string) (SortKey, error) {
	k := SortKey(s)
	if !k.Valid() {
		return SortNone, fmt.Errorf("%w: unknown sort key %q", domain.ErrInvalidInput, s)
	}
	return k, nil
}

// ParseDifficulty validates user input for a difficulty filter
func ParseDifficulty(s string) (domain.Difficulty, error) {
	d := domain.Difficulty(s)
	if s != "" && !d.Valid() {
		return "", fmt.Errorf("%w: unknown difficulty %q", domain.ErrInvalidInput, s)
	}
	return d, nil
}

// ParseTaskType validates user input for a type filter
func ParseTaskType(s string) (domain.TaskType, error) {
	t := domain.TaskType(s)
	if s != "" && !t.Valid() {
		return "", fmt.Errorf("%w: unknown task type %q", domain.ErrInvalidInput, s)
	}
	return t, nil
}
