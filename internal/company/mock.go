package company

import (
	"fmt"
	"strings"

	"github.com/sells-group/panels/internal/notify"
	"github.com/sells-group/panels/internal/remote"
)

const mockPrefix = "mock:"

// mockSeed reports whether the trimmed query triggers mock mode and returns
// the seed used in the synthetic names.
func (p *Panel) mockSeed(trimmed string) (string, bool) {
	if !p.mock {
		return "", false
	}
	lower := strings.ToLower(trimmed)
	switch {
	case lower == "test":
		return trimmed, true
	case strings.HasPrefix(lower, mockPrefix):
		return strings.TrimSpace(trimmed[len(mockPrefix):]), true
	}
	return "", false
}

func (p *Panel) applyMock(seed string) {
	p.mu.Lock()
	p.gen++
	p.loading = false
	p.setEntriesLocked(MockCandidates(seed))
	p.mu.Unlock()

	p.sink.Toast(notify.Toast{
		Title:   "Mock data",
		Message: fmt.Sprintf("Mock results for %q loaded", seed),
		Variant: notify.VariantInfo,
	})
	p.changed()
}

// MockCandidates returns the three deterministic candidates served in mock
// mode.
func MockCandidates(seed string) []remote.Candidate {
	return []remote.Candidate{
		{
			Name:             fmt.Sprintf("Mock Co %s A", seed),
			JurisdictionCode: "jp",
			CompanyNumber:    "MCK-001",
			Status:           remote.StrPtr("active"),
			RawAddress:       "Tokyo",
			Source:           "Mock",
		},
		{
			Name:             fmt.Sprintf("Mock Co %s B", seed),
			JurisdictionCode: "jp",
			CompanyNumber:    "MCK-002",
			Status:           remote.StrPtr("inactive"),
			RawAddress:       "Osaka",
			Source:           "Mock",
		},
		{
			Name:             fmt.Sprintf("Mock Co %s C", seed),
			JurisdictionCode: "us_ca",
			CompanyNumber:    "MCK-003",
			Status:           nil,
			RawAddress:       "San Francisco",
			Source:           "Mock",
		},
	}
}
