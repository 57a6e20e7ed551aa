package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Origin is the closed classification of a part's market of origin
type Origin int

const (
	OriginOther Origin = iota
	OriginKorean
	OriginChinese
	OriginAmerican
)

// Origins lists every origin tag in display order
var Origins = []Origin{OriginKorean, OriginChinese, OriginAmerican, OriginOther}

// originKeywords is checked in order, first match wins
var originKeywords = []struct {
	origin   Origin
	keywords []string
}{
	{OriginKorean, []string{"كوري", "korea"}},
	{OriginChinese, []string{"صيني", "china"}},
	{OriginAmerican, []string{"أمريكي", "usa", "american"}},
}

// ClassifyOrigin maps a free-text locale token to an origin tag.
// Unknown or empty tokens resolve to OriginOther.
func ClassifyOrigin(token string) Origin {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return OriginOther
	}

	for _, rule := range originKeywords {
		for _, kw := range rule.keywords {
			if strings.Contains(token, kw) {
				return rule.origin
			}
		}
	}

	return OriginOther
}

// String returns the wire code of the origin
func (o Origin) String() string {
	switch o {
	case OriginKorean:
		return "KOREAN"
	case OriginChinese:
		return "CHINESE"
	case OriginAmerican:
		return "AMERICAN"
	case OriginOther:
		return "OTHER"
	default:
		return "OTHER"
	}
}

// Label returns the Arabic display label shown to shoppers
func (o Origin) Label() string {
	switch o {
	case OriginKorean:
		return "كوري"
	case OriginChinese:
		return "صيني"
	case OriginAmerican:
		return "أمريكي"
	case OriginOther:
		return "أخرى"
	default:
		return "أخرى"
	}
}

// ParseOrigin resolves a wire code (case-insensitive) to an origin tag
func ParseOrigin(code string) (Origin, error) {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "KOREAN":
		return OriginKorean, nil
	case "CHINESE":
		return OriginChinese, nil
	case "AMERICAN":
		return OriginAmerican, nil
	case "OTHER":
		return OriginOther, nil
	default:
		return OriginOther, fmt.Errorf("unknown origin %q", code)
	}
}

func (o Origin) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

func (o *Origin) UnmarshalJSON(data []byte) error {
	var code string
	if err := json.Unmarshal(data, &code); err != nil {
		return err
	}

	parsed, err := ParseOrigin(code)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}
