package tampering

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/technosupport/vms-analytics/internal/data"
)

func ref(id string) data.ReferencePhase {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return data.ReferencePhase{ReferenceImage: &id, ReferenceImageUpdatedAt: &ts}
}

func TestResolvePayload(t *testing.T) {
	viewID := uuid.New()
	both := &data.TamperingConfig{Day: ref("day-1"), Night: ref("night-1")}
	dayOnly := &data.TamperingConfig{Day: ref("day-1")}

	tests := []struct {
		name    string
		in      ResolveInput
		want    PayloadKind
		refs    []Reference
		missing []data.Phase
	}{
		{"not requested", ResolveInput{ForceOnDemand: true, PerformOnDemand: true}, KindSkip, nil, nil},
		{"forced but disabled", ResolveInput{Requested: true, ForceOnDemand: true, Config: both}, KindWithChecksSkip, nil, nil},
		{"forced with urls", ResolveInput{Requested: true, ForceOnDemand: true, PerformOnDemand: true, ReferenceURLs: []string{"https://a/1.jpg", ""}},
			KindNoChecks, []Reference{{URL: "https://a/1.jpg"}}, nil},
		{"forced ignores eligibility", ResolveInput{Requested: true, ForceOnDemand: true, PerformOnDemand: true, ReferenceURLs: []string{"u"}, Eligible: false},
			KindNoChecks, []Reference{{URL: "u"}}, nil},
		{"not eligible", ResolveInput{Requested: true, ViewID: viewID, Config: both}, KindWithChecksNotEligible, nil, nil},
		{"already done", ResolveInput{Requested: true, Eligible: true, AlreadyDone: true, Config: both}, KindWithChecksSkip, nil, nil},
		{"nil config", ResolveInput{Requested: true, Eligible: true}, KindWithChecksNoReferences, nil, nil},
		{"empty phases", ResolveInput{Requested: true, Eligible: true, Config: &data.TamperingConfig{}}, KindWithChecksNoReferences, nil, nil},
		{"both phases", ResolveInput{Requested: true, Eligible: true, Config: both}, KindWithChecksProceed,
			[]Reference{{ID: "day-1", Label: data.PhaseDay}, {ID: "night-1", Label: data.PhaseNight}}, nil},
		{"day only", ResolveInput{Requested: true, Eligible: true, Config: dayOnly}, KindWithChecksProceed,
			[]Reference{{ID: "day-1", Label: data.PhaseDay}}, []data.Phase{data.PhaseNight}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolvePayload(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Kind)
			assert.Equal(t, tt.refs, got.References)
			assert.Equal(t, tt.missing, got.Missing)
			assert.NoError(t, got.Validate())
		})
	}
}

func TestResolvePayload_NotEligibleCarriesView(t *testing.T) {
	viewID := uuid.New()
	got, err := ResolvePayload(ResolveInput{Requested: true, ViewID: viewID})
	require.NoError(t, err)
	assert.Equal(t, viewID, got.ViewID)
}

func TestResolvePayload_ForcedWithoutURLs(t *testing.T) {
	_, err := ResolvePayload(ResolveInput{Requested: true, ForceOnDemand: true, PerformOnDemand: true, ReferenceURLs: []string{""}})
	assert.ErrorIs(t, err, ErrMissingReferenceURLs)
}

// Every combination of inputs yields exactly one well-formed variant.
func TestResolvePayload_Total(t *testing.T) {
	configs := []*data.TamperingConfig{
		nil,
		{},
		{Day: ref("d")},
		{Night: ref("n")},
		{Day: ref("d"), Night: ref("n")},
	}
	urlSets := [][]string{nil, {"https://ref/1.jpg"}}
	bools := []bool{false, true}

	for _, requested := range bools {
		for _, force := range bools {
			for _, perform := range bools {
				for _, eligible := range bools {
					for _, done := range bools {
						for _, cfg := range configs {
							for _, urls := range urlSets {
								in := ResolveInput{
									Requested: requested, ForceOnDemand: force, PerformOnDemand: perform,
									ReferenceURLs: urls, ViewID: uuid.New(), Eligible: eligible,
									Config: cfg, AlreadyDone: done,
								}
								got, err := ResolvePayload(in)
								if err != nil {
									require.ErrorIs(t, err, ErrMissingReferenceURLs)
									require.True(t, requested && force && perform && len(urls) == 0)
									continue
								}
								require.NoError(t, got.Validate(), "%+v", in)
							}
						}
					}
				}
			}
		}
	}
}

func TestDetectionPayload_WireShape(t *testing.T) {
	viewID := uuid.MustParse("8a3c1f9e-7d2b-4c11-9f00-2f1b0c7d1e55")

	tests := []struct {
		name    string
		payload DetectionPayload
		want    string
	}{
		{"skip", Skip(), `null`},
		{"noChecks", NoChecks([]string{"https://x/ref.jpg"}), `{"noChecks":{"references":[{"url":"https://x/ref.jpg"}]}}`},
		{"withChecks.skip", WithChecksSkip(), `{"withChecks":{"skip":true}}`},
		{"notEligible", NotEligible(viewID), `{"withChecks":{"notEligible":{"viewId":"8a3c1f9e-7d2b-4c11-9f00-2f1b0c7d1e55"}}}`},
		{"proceed", Proceed([]Reference{{ID: "r1", Label: data.PhaseNight}}, []data.Phase{data.PhaseDay}),
			`{"withChecks":{"proceed":{"references":[{"id":"r1","label":"night"}]}}}`},
		{"noReferences", NoReferences(), `{"withChecks":{"noReferences":true}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.payload)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(b))
		})
	}
}

func TestDetectionPayload_RejectsMalformed(t *testing.T) {
	_, err := json.Marshal(DetectionPayload{Kind: KindWithChecksProceed})
	assert.ErrorIs(t, err, ErrMalformedPayload)

	err = DetectionPayload{Kind: KindSkip, References: []Reference{{URL: "u"}}}.Validate()
	assert.ErrorIs(t, err, ErrMalformedPayload)

	err = DetectionPayload{Kind: "withChecks.maybe"}.Validate()
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestWithReferenceURLs(t *testing.T) {
	viewID := uuid.New()
	urls := func(id uuid.UUID, phase data.Phase) string { return "https://api/" + id.String() + "?phase=" + string(phase) }

	p := Proceed([]Reference{{ID: "r1", Label: data.PhaseDay}}, nil)
	withURLs := p.WithReferenceURLs(viewID, urls)
	assert.Equal(t, "https://api/"+viewID.String()+"?phase=day", withURLs.References[0].URL)
	assert.Empty(t, p.References[0].URL, "original payload is not modified")

	skip := WithChecksSkip().WithReferenceURLs(viewID, urls)
	assert.Empty(t, skip.References)
}
