package datml

import (
	"encoding/xml"
	"fmt"
)

// Verification report status values.
const (
	StatusOK     = "ok"
	StatusFehler = "fehler"
)

// Pruefmeldung is one human-readable finding in a verification report.
type Pruefmeldung struct {
	Text string `xml:",chardata"`
}

// Pruefprotokoll is the verification report referencing one submission.
type Pruefprotokoll struct {
	Bezug     string         `xml:"bezug,attr"`
	Status    string         `xml:"Status"`
	Meldungen []Pruefmeldung `xml:"Pruefmeldung,omitempty"`
}

// Confirmation is the DatML-RES-D receipt document root. It is built both
// for real portal responses and for dry-run previews.
type Confirmation struct {
	XMLName   xml.Name       `xml:"DatML-RES"`
	Namespace string         `xml:"xmlns,attr"`
	Version   string         `xml:"version,attr"`
	Protokoll Pruefprotokoll `xml:"Pruefprotokoll"`
}

// BuildConfirmation renders a receipt for the given submission reference.
// A non-empty message list marks the report as failed.
func BuildConfirmation(submissionID string, errorMessages []string) ([]byte, error) {
	doc := Confirmation{
		Namespace: NamespaceRes,
		Version:   schemaVersion,
		Protokoll: Pruefprotokoll{
			Bezug:  submissionID,
			Status: StatusOK,
		},
	}
	if len(errorMessages) > 0 {
		doc.Protokoll.Status = StatusFehler
		doc.Protokoll.Meldungen = make([]Pruefmeldung, 0, len(errorMessages))
		for _, msg := range errorMessages {
			doc.Protokoll.Meldungen = append(doc.Protokoll.Meldungen, Pruefmeldung{Text: msg})
		}
	}
	return marshalDocument(doc)
}

// ParseConfirmation decodes a receipt document, e.g. a raw portal response.
func ParseConfirmation(data []byte) (*Confirmation, error) {
	var doc Confirmation
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse datml confirmation: %w", err)
	}
	return &doc, nil
}

// Findings extracts the finding texts from a parsed confirmation.
func (c *Confirmation) Findings() []string {
	if len(c.Protokoll.Meldungen) == 0 {
		return nil
	}
	out := make([]string, 0, len(c.Protokoll.Meldungen))
	for _, m := range c.Protokoll.Meldungen {
		out = append(out, m.Text)
	}
	return out
}

// OK reports whether the receipt carries no findings.
func (c *Confirmation) OK() bool {
	return c.Protokoll.Status == StatusOK
}
