// Package profile defines review profiles that modulate the clause-analysis
// prompt. Each profile provides a SystemPromptAddendum that is appended to
// the system prompt sent to the LLM.
package profile

import (
	"fmt"
	"sort"
	"strings"
)

// Profile describes a review perspective.
type Profile struct {
	Name                 string
	Description          string
	SystemPromptAddendum string
}

// DefaultName is the profile used when none is configured.
const DefaultName = "general"

// builtins is the registry of built-in profiles keyed by name.
var builtins = map[string]Profile{
	"general": {
		Name:        "general",
		Description: "Neutral review; weighs both parties' interests equally.",
		SystemPromptAddendum: "양 당사자의 이해관계를 균형 있게 고려하여 평가하세요. " +
			"근거가 불명확한 경우 추측하지 말고 summary에 불확실성을 명시하세요.",
	},
	"weaker-party": {
		Name:        "weaker-party",
		Description: "Reviews from the side of the weaker party (employee, tenant, small contractor).",
		SystemPromptAddendum: "근로자, 임차인, 소규모 수급인 등 상대적으로 약한 당사자의 입장에서 평가하세요. " +
			"일방에게만 해지권, 면책, 위약금을 부여하는 조항과 강행규정(근로기준법, 주택임대차보호법)에 " +
			"어긋나는 조항은 risk_score 7 이상으로 평가하세요.",
	},
	"strict": {
		Name:        "strict",
		Description: "Conservative review; ambiguity counts as risk.",
		SystemPromptAddendum: "보수적으로 평가하세요. 모호한 표현, 기한이나 금액이 특정되지 않은 의무, " +
			"상대방의 재량에 맡겨진 조건은 모두 위험 요소로 간주하고 issues에 기재하세요.",
	},
}

// Names returns the built-in profile names in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Load returns the named built-in profile or an error if the name is unknown.
// An empty name loads DefaultName.
func Load(name string) (Profile, error) {
	if name == "" {
		name = DefaultName
	}
	p, ok := builtins[name]
	if !ok {
		return Profile{}, fmt.Errorf("profile: unknown profile %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return p, nil
}
