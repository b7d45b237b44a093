// Package datml encodes and decodes the government XML schema family:
// DatML-RAW-D for outbound declarations, DatML-RES-D for confirmation
// receipts. Builders are deterministic: the same batch state always yields
// byte-identical documents, which keeps content hashing and re-submission
// detection stable.
package datml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"

	"infrastat/internal/infrastat/models"
)

const (
	// NamespaceRaw is the outbound declaration namespace.
	NamespaceRaw = "http://www.destatis.de/schema/datml-raw/2.0/de"
	// NamespaceRes is the confirmation/receipt namespace.
	NamespaceRes = "http://www.destatis.de/schema/datml-res/2.0/de"

	schemaVersion = "2.0"
)

// Organisation is a sender or receiver block in the document header.
type Organisation struct {
	Kennung string `xml:"Kennung"`
	Name    string `xml:"Name,omitempty"`
	Kontakt string `xml:"Kontakt,omitempty"`
}

// Zusatz carries one extension field on a segment.
type Zusatz struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

// Segment is one declaration line on the wire.
type Segment struct {
	Folge             int      `xml:"folge,attr"`
	Warennummer       string   `xml:"Warennummer"`
	Ursprungsland     string   `xml:"Ursprungsland"`
	Bestimmungsland   string   `xml:"Bestimmungsland"`
	Eigenmasse        string   `xml:"Eigenmasse"`
	Rechnungsbetrag   string   `xml:"Rechnungsbetrag"`
	StatistischerWert string   `xml:"StatistischerWert,omitempty"`
	BesondereEinheit  string   `xml:"BesondereMasseinheit,omitempty"`
	Geschaeftsart     string   `xml:"Geschaeftsart,omitempty"`
	Verkehrszweig     string   `xml:"Verkehrszweig,omitempty"`
	Lieferbedingung   string   `xml:"Lieferbedingung,omitempty"`
	Zusaetze          []Zusatz `xml:"Zusatz,omitempty"`
}

// Nachricht is the message element grouping all segments of one batch.
// The period rides both combined and split: receivers key their protocols
// on the year/month pair.
type Nachricht struct {
	Erhebung string    `xml:"erhebung,attr"`
	Zeitraum string    `xml:"berichtszeitraum,attr"`
	Jahr     string    `xml:"berichtsjahr,attr"`
	Monat    string    `xml:"berichtsmonat,attr"`
	Richtung string    `xml:"richtung,attr"`
	Segmente []Segment `xml:"Segment"`
}

// Declaration is the outbound DatML-RAW-D document root.
type Declaration struct {
	XMLName    xml.Name     `xml:"DatML-RAW"`
	Namespace  string       `xml:"xmlns,attr"`
	Version    string       `xml:"version,attr"`
	Absender   Organisation `xml:"Absender"`
	Empfaenger Organisation `xml:"Empfaenger"`
	Nachricht  Nachricht    `xml:"Nachricht"`
}

// BuildDeclaration renders the outbound document for a batch and its lines.
func BuildDeclaration(batch *models.DeclarationBatch, lines []models.DeclarationLine) ([]byte, error) {
	doc := Declaration{
		Namespace: NamespaceRaw,
		Version:   schemaVersion,
		Absender: Organisation{
			Kennung: batch.Metadata.SenderID,
			Name:    batch.Metadata.SenderName,
			Kontakt: batch.Metadata.ContactPerson,
		},
		Empfaenger: Organisation{
			Kennung: batch.Metadata.ReceiverID,
			Name:    batch.Metadata.ReceiverName,
		},
		Nachricht: Nachricht{
			Erhebung: "intrahandel",
			Zeitraum: batch.RefPeriod.String(),
			Jahr:     batch.RefPeriod.Year(),
			Monat:    batch.RefPeriod.Month(),
			Richtung: string(batch.FlowType),
			Segmente: make([]Segment, 0, len(lines)),
		},
	}

	for _, line := range lines {
		seg := Segment{
			Folge:           line.SeqNo,
			Warennummer:     line.CommodityCode,
			Ursprungsland:   line.OriginCountry,
			Bestimmungsland: line.DestinationCountry,
			Eigenmasse:      formatAmount(line.NetMassKG),
			Rechnungsbetrag: formatAmount(line.InvoiceValue),
			Geschaeftsart:   line.TransactionNature,
			Verkehrszweig:   line.TransportMode,
			Lieferbedingung: line.DeliveryTerms,
		}
		if line.StatisticalValue != nil {
			seg.StatistischerWert = formatAmount(*line.StatisticalValue)
		}
		if line.SupplementaryUnits != nil {
			seg.BesondereEinheit = formatAmount(*line.SupplementaryUnits)
		}
		for _, ext := range line.Extensions {
			seg.Zusaetze = append(seg.Zusaetze, Zusatz{Name: ext.Key, Value: ext.Value.String()})
		}
		doc.Nachricht.Segmente = append(doc.Nachricht.Segmente, seg)
	}

	return marshalDocument(doc)
}

// formatAmount renders a numeric value without exponent or trailing zeros.
func formatAmount(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func marshalDocument(doc any) ([]byte, error) {
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal datml document: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.Write(body)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
