package classify

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// SlotPolicy maps a semantic slot to its position in a delimiter-separated
// payload.  Deployments disagree on which position carries which field, so
// the mapping is configuration, not a constant.
type SlotPolicy map[Slot]int

// DefaultSlotPolicy is the mapping used when none is configured:
// order first, customer second, package third.
func DefaultSlotPolicy() SlotPolicy {
	return SlotPolicy{SlotOrder: 0, SlotCustomer: 1, SlotPackage: 2}
}

// ParseSlotPolicy parses a "order=0,customer=1,package=2" style spec.
// Unknown slot names and malformed entries are rejected.
func ParseSlotPolicy(spec string) (SlotPolicy, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return DefaultSlotPolicy(), nil
	}

	policy := make(SlotPolicy)
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, idxStr, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("slot policy entry %q: missing '='", entry)
		}
		slot := Slot(strings.ToLower(strings.TrimSpace(name)))
		switch slot {
		case SlotOrder, SlotCustomer, SlotPackage:
		default:
			return nil, fmt.Errorf("slot policy entry %q: unknown slot", entry)
		}
		idx, err := strconv.Atoi(strings.TrimSpace(idxStr))
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("slot policy entry %q: bad index", entry)
		}
		policy[slot] = idx
	}
	if len(policy) == 0 {
		return DefaultSlotPolicy(), nil
	}
	return policy, nil
}

// Classifier turns raw scan strings into typed payloads.  Classification
// is deterministic, total (every input yields a payload, empty included)
// and never returns an error.
type Classifier struct {
	policy SlotPolicy
}

func New(policy SlotPolicy) *Classifier {
	if len(policy) == 0 {
		policy = DefaultSlotPolicy()
	}
	return &Classifier{policy: policy}
}

// separatorCandidates are the characters observed as field separators on
// warehouse labels, tried in order.
var separatorCandidates = []rune{'^', '*', '|', ';', '~'}

// Classify evaluates the format branches in fixed priority order and
// returns the first match.  The fallback branch guarantees totality.
func (c *Classifier) Classify(raw string) Payload {
	trimmed := strings.TrimSpace(raw)

	if p, ok := c.classifyDelimited(raw, trimmed); ok {
		return p
	}
	if p, ok := classifyStructured(raw, trimmed); ok {
		return p
	}
	if p, ok := classifyURL(raw, trimmed); ok {
		return p
	}
	if p, ok := classifyBarcode(trimmed); ok {
		return p
	}
	if p, ok := classifyAlphanumeric(trimmed); ok {
		return p
	}
	if p, ok := classifyPattern(raw, trimmed); ok {
		return p
	}
	return Fallback{Excerpt: excerpt(trimmed), raw: raw}
}

func (c *Classifier) classifyDelimited(raw, trimmed string) (Payload, bool) {
	for _, sep := range separatorCandidates {
		if !strings.ContainsRune(trimmed, sep) {
			continue
		}
		parts := strings.Split(trimmed, string(sep))
		ok := len(parts) >= 2
		for _, p := range parts {
			if strings.TrimSpace(p) == "" {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		slots := make(map[Slot]string)
		for slot, idx := range c.policy {
			if idx < len(parts) {
				slots[slot] = parts[idx]
			}
		}
		return Delimited{Separator: sep, Parts: parts, slots: slots, raw: raw}, true
	}
	return nil, false
}

// slotAliases lists the accepted JSON keys per slot, covering the English
// and German labels seen on supplier QR codes.
var slotAliases = map[Slot][]string{
	SlotOrder:    {"order", "ordernumber", "order_number", "orderid", "auftrag", "auftragsnummer", "auftragnr"},
	SlotCustomer: {"customer", "customernumber", "customer_number", "kunde", "kundennummer", "kundennr"},
	SlotPackage:  {"package", "packagenumber", "package_number", "parcel", "paket", "paketnummer", "paketnr"},
}

// classifyStructured handles brace-wrapped JSON objects.  A payload that
// looks like JSON but fails to parse is not an error; it simply falls
// through to the later branches.
func classifyStructured(raw, trimmed string) (Payload, bool) {
	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return nil, false
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return nil, false
	}

	// Normalize keys once so alias lookup is case-insensitive.
	norm := make(map[string]string, len(obj))
	for k, v := range obj {
		s := stringifyScalar(v)
		if s == "" {
			continue
		}
		norm[strings.ToLower(strings.TrimSpace(k))] = s
	}

	slots := make(map[Slot]string)
	for slot, aliases := range slotAliases {
		for _, alias := range aliases {
			if v, ok := norm[alias]; ok {
				slots[slot] = v
				break
			}
		}
	}
	return Structured{slots: slots, raw: raw}, true
}

func stringifyScalar(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}

func classifyURL(raw, trimmed string) (Payload, bool) {
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		return nil, false
	}
	host := ""
	if u, err := url.Parse(trimmed); err == nil {
		host = u.Host
	}
	return URL{Host: host, raw: raw}, true
}

func classifyBarcode(trimmed string) (Payload, bool) {
	if len(trimmed) < 10 {
		return nil, false
	}
	for _, r := range trimmed {
		if r < '0' || r > '9' {
			return nil, false
		}
	}
	return Barcode{Digits: trimmed}, true
}

func classifyAlphanumeric(trimmed string) (Payload, bool) {
	if trimmed == "" {
		return nil, false
	}
	for _, r := range trimmed {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		default:
			return nil, false
		}
	}
	return Alphanumeric{Code: trimmed}, true
}

// slotPatterns scan free text for labelled values, e.g. "Order: 4711" or
// "Paket # 77-A".  Case-insensitive, label variants per slot.
var slotPatterns = map[Slot]*regexp.Regexp{
	SlotOrder:    regexp.MustCompile(`(?i)(?:order|auftrag)\s*(?:nr\.?|number)?\s*[:#]\s*([A-Za-z0-9][A-Za-z0-9_./-]*)`),
	SlotCustomer: regexp.MustCompile(`(?i)(?:customer|kunde)\s*(?:nr\.?|number)?\s*[:#]\s*([A-Za-z0-9][A-Za-z0-9_./-]*)`),
	SlotPackage:  regexp.MustCompile(`(?i)(?:package|paket|parcel)\s*(?:nr\.?|number)?\s*[:#]\s*([A-Za-z0-9][A-Za-z0-9_./-]*)`),
}

func classifyPattern(raw, trimmed string) (Payload, bool) {
	slots := make(map[Slot]string)
	for slot, re := range slotPatterns {
		if m := re.FindStringSubmatch(trimmed); m != nil {
			slots[slot] = m[1]
		}
	}
	if len(slots) == 0 {
		return nil, false
	}
	return Pattern{slots: slots, raw: raw}, true
}
