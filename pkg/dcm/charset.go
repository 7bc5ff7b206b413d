package dcm

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

var defaultRepertoire encoding.Encoding = charmap.Windows1252

// SpecificCharacterSet defined terms to WHATWG encoding labels.
// http://dicom.nema.org/medical/dicom/current/output/chtml/part02/sect_D.6.2.html
var labelByTerm = map[string]string{
	"ISO_IR 6":        "us-ascii",
	"ISO_IR 100":      "iso-ir-100",
	"ISO_IR 101":      "iso-ir-101",
	"ISO_IR 109":      "iso-ir-109",
	"ISO_IR 110":      "iso-ir-110",
	"ISO_IR 144":      "iso-ir-144",
	"ISO_IR 127":      "iso-ir-127",
	"ISO_IR 126":      "iso-ir-126",
	"ISO_IR 138":      "iso-ir-138",
	"ISO_IR 148":      "iso-ir-148",
	"ISO_IR 13":       "shift-jis",
	"ISO_IR 166":      "tis-620",
	"ISO_IR 192":      "utf-8",
	"GB18030":         "gb18030",
	"GBK":             "gbk",
	"ISO 2022 IR 6":   "us-ascii",
	"ISO 2022 IR 100": "iso-ir-100",
	"ISO 2022 IR 101": "iso-ir-101",
	"ISO 2022 IR 109": "iso-ir-109",
	"ISO 2022 IR 110": "iso-ir-110",
	"ISO 2022 IR 144": "iso-ir-144",
	"ISO 2022 IR 127": "iso-ir-127",
	"ISO 2022 IR 126": "iso-ir-126",
	"ISO 2022 IR 138": "iso-ir-138",
	"ISO 2022 IR 148": "iso-ir-148",
	"ISO 2022 IR 13":  "shift-jis",
	"ISO 2022 IR 166": "tis-620",
	"ISO 2022 IR 87":  "iso-2022-jp",
	"ISO 2022 IR 159": "iso-2022-jp",
	"ISO 2022 IR 149": "iso-ir-149",
}

// textVRs are the VRs whose values are affected by SpecificCharacterSet
var textVRs = map[string]bool{
	"SH": true, "LO": true, "ST": true, "LT": true, "UT": true, "PN": true, "UC": true,
}

// LookupEncoding maps a SpecificCharacterSet value to an encoding. Only the
// first term of a multi-valued set is honored; code extensions are not.
func LookupEncoding(specificCharacterSet string) (encoding.Encoding, error) {
	term := strings.TrimSpace(strings.Split(specificCharacterSet, "\\")[0])
	if term == "" {
		return defaultRepertoire, nil
	}
	label, ok := labelByTerm[term]
	if !ok {
		return nil, fmt.Errorf("specific character set defined term not found: %v", term)
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("missing encoding for label %q: %w", label, err)
	}
	return enc, nil
}

// DecodeString converts raw text bytes into UTF-8
func DecodeString(b []byte, specificCharacterSet string) (string, error) {
	enc, err := LookupEncoding(specificCharacterSet)
	if err != nil {
		return "", err
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decoding text: %w", err)
	}
	return strings.TrimRight(string(out), " \x00"), nil
}

// EncodeString converts UTF-8 text into the bytes of the character set
func EncodeString(s, specificCharacterSet string) ([]byte, error) {
	enc, err := LookupEncoding(specificCharacterSet)
	if err != nil {
		return nil, err
	}
	out, err := enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("encoding text: %w", err)
	}
	return out, nil
}
