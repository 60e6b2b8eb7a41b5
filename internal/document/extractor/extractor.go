// Package extractor turns raw recognized text into a flat field map using
// label-anchored patterns fixed per document type. Extraction is a pure
// function of (text, type): missing fields are simply absent from the map,
// never an error.
package extractor

import (
	"regexp"
	"strings"

	"veridoc/internal/document/models"
)

// classifyThreshold is the minimum classifier confidence required before an
// "other" document is extracted with a concrete type's table. Below it the
// generic field set applies.
const classifyThreshold = 0.6

type anchor struct {
	field string
	re    *regexp.Regexp
}

// Value shapes reused across anchors. Text is lowercased before matching.
const (
	nameValue = `([a-zà-ÿ][a-zà-ÿ'. ]+)`
	dateValue = `(\d{2}[./]\d{2}[./]\d{4}|\d{4}-\d{2}-\d{2})`
	cpfValue  = `(\d{3}[.\s]?\d{3}[.\s]?\d{3}[-\s]?\d{2})`
)

func mustAnchor(field, labels, value string) anchor {
	return anchor{
		field: field,
		re:    regexp.MustCompile(`(?:` + labels + `)\s*[:.\-]?\s*` + value),
	}
}

// mustLineAnchor captures the rest of the line after the label. The
// separator is mandatory here: without it a label occurring inside a longer
// word ("escola" in "escolar") would swallow the tail of that word.
func mustLineAnchor(field, labels string) anchor {
	return anchor{
		field: field,
		re:    regexp.MustCompile(`(?:` + labels + `)\s*[:.\-]\s*([^\n]+)`),
	}
}

var anchorTables = map[models.DocumentType][]anchor{
	models.DocTypeIDCard: {
		mustAnchor(models.FieldName, `nome|name`, nameValue),
		mustAnchor(models.FieldMotherName, `filia[cç][aã]o|m[aã]e|mother`, nameValue),
		mustAnchor(models.FieldBirthDate, `data de nascimento|nascimento|birth`, dateValue),
		mustAnchor(models.FieldIssueDate, `data de expedi[cç][aã]o|expedi[cç][aã]o|emiss[aã]o|issued?`, dateValue),
		mustAnchor(models.FieldTaxID, `cpf`, cpfValue),
		mustAnchor(models.FieldIDNumber, `registro geral|rg|doc identidade`, `([\d.\-xX]{5,15})`),
	},
	models.DocTypeTaxID: {
		mustAnchor(models.FieldName, `nome|name`, nameValue),
		mustAnchor(models.FieldTaxID, `cpf|n[uú]mero de inscri[cç][aã]o`, cpfValue),
		mustAnchor(models.FieldBirthDate, `data de nascimento|nascimento|birth`, dateValue),
	},
	models.DocTypeAddressProof: {
		mustAnchor(models.FieldName, `nome|cliente|titular|name`, nameValue),
		mustLineAnchor(models.FieldAddress, `endere[cç]o|address`),
		mustAnchor(models.FieldIssueDate, `data de emiss[aã]o|emiss[aã]o|vencimento|issued?`, dateValue),
	},
	models.DocTypeSchoolRecord: {
		mustAnchor(models.FieldName, `nome do aluno|aluno|nome|student`, nameValue),
		mustAnchor(models.FieldBirthDate, `data de nascimento|nascimento|birth`, dateValue),
		mustLineAnchor(models.FieldSchoolName, `escola|institui[cç][aã]o|col[eé]gio|school`),
		mustAnchor(models.FieldEnrollmentYear, `ano letivo|s[eé]rie|year`, `(\d{4})`),
		mustAnchor(models.FieldIssueDate, `data de emiss[aã]o|emiss[aã]o|issued?`, dateValue),
	},
	models.DocTypeBirthRecord: {
		mustAnchor(models.FieldName, `nome do registrado|nome|name`, nameValue),
		mustAnchor(models.FieldBirthDate, `data de nascimento|nascimento|nascido em|birth`, dateValue),
		mustAnchor(models.FieldMotherName, `nome da m[aã]e|m[aã]e|mother`, nameValue),
		mustAnchor(models.FieldFatherName, `nome do pai|pai|father`, nameValue),
	},
}

// genericAnchors cover documents whose type remains unknown after
// classification: names, ids, addresses, and dates gathered from anywhere in
// the text.
var genericAnchors = []anchor{
	mustAnchor(models.FieldName, `nome|name`, nameValue),
	mustAnchor(models.FieldTaxID, `cpf`, cpfValue),
	mustAnchor(models.FieldIDNumber, `rg|identidade|documento`, `([\d.\-xX]{5,15})`),
	mustLineAnchor(models.FieldAddress, `endere[cç]o|address`),
	mustAnchor(models.FieldBirthDate, `nascimento|birth`, dateValue),
	mustAnchor(models.FieldIssueDate, `emiss[aã]o|data`, dateValue),
}

// Extract returns the raw field map for a document. For type "other" the text
// is first classified; a low-confidence prediction falls back to the generic
// field set.
func Extract(text string, docType models.DocumentType) map[string]string {
	text = strings.ToLower(text)

	anchors, ok := anchorTables[docType]
	if !ok {
		predicted, confidence := Classify(text)
		if confidence >= classifyThreshold {
			anchors = anchorTables[predicted]
		} else {
			anchors = genericAnchors
		}
	}

	fields := make(map[string]string)
	for _, a := range anchors {
		if _, done := fields[a.field]; done {
			continue
		}
		m := a.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		value := strings.TrimSpace(m[1])
		if value != "" {
			fields[a.field] = value
		}
	}
	return fields
}
