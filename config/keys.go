package config

import "strings"

// KeyState describes one required credential.
type KeyState int

const (
	KeySet KeyState = iota
	KeyMissing
	// KeyPlaceholder is a value copied unchanged from an example file.
	KeyPlaceholder
)

func (s KeyState) String() string {
	switch s {
	case KeySet:
		return "ok"
	case KeyMissing:
		return "missing"
	case KeyPlaceholder:
		return "needs to be set"
	default:
		return "unknown"
	}
}

// KeyStatus is the check result of one credential.
type KeyStatus struct {
	Name  string
	State KeyState
	// Masked shows at most the first eight characters.
	Masked string
}

// CheckKeys reports the credentials the configured backend and model
// provider need.
func (c *Config) CheckKeys() []KeyStatus {
	type key struct{ name, value string }
	var keys []key
	switch c.Model.Provider {
	case ProviderOpenAI:
		keys = append(keys, key{"OPENAI_API_KEY", c.Model.APIKey})
	case ProviderAnthropic:
		keys = append(keys, key{"ANTHROPIC_API_KEY", c.Model.APIKey})
	}
	switch c.Backend {
	case BackendMem0:
		keys = append(keys,
			key{"MEM0_API_KEY", c.Mem0.APIKey},
			key{"MEM0_PROJECT_ID", c.Mem0.ProjectID},
			key{"MEM0_ORGANIZATION_ID", c.Mem0.OrganizationID},
		)
	case BackendZep:
		keys = append(keys, key{"ZEP_API_KEY", c.Zep.APIKey})
	}

	out := make([]KeyStatus, 0, len(keys))
	for _, k := range keys {
		st := KeyStatus{Name: k.name}
		switch {
		case k.value == "":
			st.State = KeyMissing
		case strings.HasPrefix(k.value, "your-"):
			st.State = KeyPlaceholder
		default:
			st.Masked = mask(k.value)
		}
		out = append(out, st)
	}
	return out
}

func mask(v string) string {
	if len(v) > 8 {
		return v[:8] + "..."
	}
	return "***"
}
