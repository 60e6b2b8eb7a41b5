package extractor

import (
	"strings"

	"veridoc/internal/document/models"
)

// typeKeywords score how strongly a text resembles each concrete document
// type. Confidence for a type is the fraction of its keywords found in the
// text, so short lists stay sensitive to strong single markers.
var typeKeywords = map[models.DocumentType][]string{
	models.DocTypeIDCard: {
		"carteira de identidade",
		"registro geral",
		"secretaria de seguran",
		"filia",
	},
	models.DocTypeTaxID: {
		"cadastro de pessoas f",
		"receita federal",
		"cpf",
		"inscri",
	},
	models.DocTypeAddressProof: {
		"comprovante de resid",
		"fatura",
		"vencimento",
		"endere",
	},
	models.DocTypeSchoolRecord: {
		"hist",
		"escolar",
		"boletim",
		"ano letivo",
	},
	models.DocTypeBirthRecord: {
		"certid",
		"nascimento",
		"cart",
		"registro civil",
	},
}

// classifyOrder fixes the tie-break order so classification stays
// deterministic for identical inputs.
var classifyOrder = []models.DocumentType{
	models.DocTypeIDCard,
	models.DocTypeTaxID,
	models.DocTypeAddressProof,
	models.DocTypeSchoolRecord,
	models.DocTypeBirthRecord,
}

// Classify predicts the most likely concrete type for unlabeled text, with a
// confidence in [0,1]. Callers only act on the result above classifyThreshold.
func Classify(text string) (models.DocumentType, float64) {
	text = strings.ToLower(text)

	best := models.DocTypeOther
	bestScore := 0.0
	for _, docType := range classifyOrder {
		keywords := typeKeywords[docType]
		hits := 0
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				hits++
			}
		}
		score := float64(hits) / float64(len(keywords))
		if score > bestScore {
			best = docType
			bestScore = score
		}
	}
	return best, bestScore
}
