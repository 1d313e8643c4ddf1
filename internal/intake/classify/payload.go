package classify

// Format identifies which classification branch matched a raw payload.
type Format string

const (
	FormatDelimited    Format = "delimited"
	FormatStructured   Format = "structured"
	FormatURL          Format = "url"
	FormatBarcode      Format = "barcode"
	FormatAlphanumeric Format = "alphanumeric"
	FormatPattern      Format = "pattern"
	FormatFallback     Format = "fallback"
)

// Slot names a semantic field a payload can carry.
type Slot string

const (
	SlotOrder    Slot = "order"
	SlotCustomer Slot = "customer"
	SlotPackage  Slot = "package"
)

// Payload is the classified form of one raw scan string.  Each format is
// its own variant carrying only the fields meaningful to it; the shared
// surface is what downstream code (persistence, display) needs.
type Payload interface {
	Format() Format
	// Fields returns the extracted semantic slots.  May be empty; the
	// returned map must not be mutated.
	Fields() map[Slot]string
	Raw() string
	Display() string
}

// Delimited is a payload split on a repeated single-character separator,
// e.g. "123^KUNDE^PAKET77".  Parts preserves the original field order.
type Delimited struct {
	Separator rune
	Parts     []string
	slots     map[Slot]string
	raw       string
}

func (p Delimited) Format() Format           { return FormatDelimited }
func (p Delimited) Fields() map[Slot]string  { return p.slots }
func (p Delimited) Raw() string              { return p.raw }
func (p Delimited) Display() string          { return displayFromSlots(p.slots, p.Parts[0]) }

// Structured is a payload that parsed as a JSON object.
type Structured struct {
	slots map[Slot]string
	raw   string
}

func (p Structured) Format() Format          { return FormatStructured }
func (p Structured) Fields() map[Slot]string { return p.slots }
func (p Structured) Raw() string             { return p.raw }
func (p Structured) Display() string         { return displayFromSlots(p.slots, excerpt(p.raw)) }

// URL is an http(s) payload; only the host is extracted.
type URL struct {
	Host string
	raw  string
}

func (p URL) Format() Format          { return FormatURL }
func (p URL) Fields() map[Slot]string { return nil }
func (p URL) Raw() string             { return p.raw }
func (p URL) Display() string         { return p.Host }

// Barcode is an all-digit payload of at least ten digits.
type Barcode struct {
	Digits string
}

func (p Barcode) Format() Format          { return FormatBarcode }
func (p Barcode) Fields() map[Slot]string { return nil }
func (p Barcode) Raw() string             { return p.Digits }
func (p Barcode) Display() string         { return p.Digits }

// Alphanumeric is a plain letters-and-digits code.
type Alphanumeric struct {
	Code string
}

func (p Alphanumeric) Format() Format          { return FormatAlphanumeric }
func (p Alphanumeric) Fields() map[Slot]string { return nil }
func (p Alphanumeric) Raw() string             { return p.Code }
func (p Alphanumeric) Display() string         { return p.Code }

// Pattern is free text from which labelled fields were scraped
// opportunistically ("Order: 123 ...").
type Pattern struct {
	slots map[Slot]string
	raw   string
}

func (p Pattern) Format() Format          { return FormatPattern }
func (p Pattern) Fields() map[Slot]string { return p.slots }
func (p Pattern) Raw() string             { return p.raw }
func (p Pattern) Display() string         { return displayFromSlots(p.slots, excerpt(p.raw)) }

// Fallback matched nothing; it carries a short excerpt as its only label.
type Fallback struct {
	Excerpt string
	raw     string
}

func (p Fallback) Format() Format          { return FormatFallback }
func (p Fallback) Fields() map[Slot]string { return nil }
func (p Fallback) Raw() string             { return p.raw }
func (p Fallback) Display() string         { return p.Excerpt }

const excerptLen = 50

func excerpt(s string) string {
	if len(s) <= excerptLen {
		return s
	}
	return s[:excerptLen]
}

func displayFromSlots(slots map[Slot]string, fallback string) string {
	if v, ok := slots[SlotOrder]; ok {
		return "order " + v
	}
	if v, ok := slots[SlotPackage]; ok {
		return "package " + v
	}
	if v, ok := slots[SlotCustomer]; ok {
		return "customer " + v
	}
	return fallback
}
