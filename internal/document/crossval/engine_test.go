package crossval

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"veridoc/internal/document/models"
)

type EngineSuite struct {
	suite.Suite
	engine *Engine
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.engine = NewEngine(nil)
}

func (s *EngineSuite) TestValidate_NoSiblings() {
	outcome := s.engine.Validate(models.DocTypeIDCard, map[string]string{
		models.FieldName: "joao silva",
	}, nil)

	s.Equal(models.StatusPending, outcome.Status)
	s.Zero(outcome.Score)
	s.Empty(outcome.Matches)
	s.Empty(outcome.Inconsistencies)
}

func (s *EngineSuite) TestValidate_FullAgreement() {
	sibling := Sibling{
		ID:   uuid.New(),
		Type: models.DocTypeTaxID,
		Fields: map[string]string{
			models.FieldName:      "joao silva",
			models.FieldBirthDate: "1990-05-01",
			models.FieldTaxID:     "12345678900",
		},
	}

	outcome := s.engine.Validate(models.DocTypeIDCard, map[string]string{
		models.FieldName:      "joao silva",
		models.FieldBirthDate: "1990-05-01",
		models.FieldTaxID:     "12345678900",
	}, []Sibling{sibling})

	s.Equal(models.StatusValid, outcome.Status)
	s.InDelta(1.0, outcome.Score, 1e-9)
	s.Len(outcome.Matches, 3)
	s.Empty(outcome.Inconsistencies)
}

func (s *EngineSuite) TestValidate_LightFieldDisagreement() {
	// Name and birth date agree, the tax id differs. With weights
	// 0.5/0.3/0.2 the score lands at 0.8: review territory, but the
	// disagreeing weight is too light to record an inconsistency.
	sibling := Sibling{
		ID:   uuid.New(),
		Type: models.DocTypeTaxID,
		Fields: map[string]string{
			models.FieldName:      "joao silva",
			models.FieldBirthDate: "1990-05-01",
			models.FieldTaxID:     "12345678901",
		},
	}

	outcome := s.engine.Validate(models.DocTypeIDCard, map[string]string{
		models.FieldName:      "joao silva",
		models.FieldBirthDate: "1990-05-01",
		models.FieldTaxID:     "12345678900",
	}, []Sibling{sibling})

	s.Equal(models.StatusNeedsReview, outcome.Status)
	s.InDelta(0.8, outcome.Score, 1e-9)
	s.Empty(outcome.Inconsistencies)

	s.Require().Len(outcome.Matches, 3)
	byField := map[string]models.FieldMatch{}
	for _, m := range outcome.Matches {
		byField[m.Field] = m
	}
	s.True(byField[models.FieldName].Matched)
	s.True(byField[models.FieldBirthDate].Matched)
	s.False(byField[models.FieldTaxID].Matched)
}

func (s *EngineSuite) TestValidate_HighSeverityForcesReview() {
	// A name mismatch against a tax id document carries weight 0.5. The
	// raw score would be invalid, but a high-severity inconsistency always
	// routes to a human first.
	sibling := Sibling{
		ID:   uuid.New(),
		Type: models.DocTypeTaxID,
		Fields: map[string]string{
			models.FieldName:      "pedro almeida",
			models.FieldBirthDate: "1990-05-01",
			models.FieldTaxID:     "12345678900",
		},
	}

	outcome := s.engine.Validate(models.DocTypeIDCard, map[string]string{
		models.FieldName:      "joao silva",
		models.FieldBirthDate: "1990-05-01",
		models.FieldTaxID:     "12345678900",
	}, []Sibling{sibling})

	s.Equal(models.StatusNeedsReview, outcome.Status)
	s.Require().Len(outcome.Inconsistencies, 1)
	s.Equal(models.FieldName, outcome.Inconsistencies[0].Field)
	s.Equal(models.SeverityHigh, outcome.Inconsistencies[0].Severity)
	s.Equal([]uuid.UUID{sibling.ID}, outcome.Inconsistencies[0].Sources)
}

func (s *EngineSuite) TestValidate_MediumSeverity() {
	// school_record vs birth_record weighs birth_date at 0.35: recorded,
	// but not severe enough to force review on its own.
	sibling := Sibling{
		ID:   uuid.New(),
		Type: models.DocTypeBirthRecord,
		Fields: map[string]string{
			models.FieldName:      "joao silva",
			models.FieldBirthDate: "1991-02-02",
		},
	}

	outcome := s.engine.Validate(models.DocTypeSchoolRecord, map[string]string{
		models.FieldName:      "joao silva",
		models.FieldBirthDate: "1990-05-01",
	}, []Sibling{sibling})

	s.Equal(models.StatusInvalid, outcome.Status)
	s.Require().Len(outcome.Inconsistencies, 1)
	s.Equal(models.SeverityMedium, outcome.Inconsistencies[0].Severity)
}

func (s *EngineSuite) TestValidate_MergesRepeatedInconsistencies() {
	fields := map[string]string{
		models.FieldName:      "joao silva",
		models.FieldBirthDate: "1990-05-01",
	}
	siblingA := Sibling{ID: uuid.New(), Type: models.DocTypeTaxID, Fields: map[string]string{
		models.FieldName:      "pedro almeida",
		models.FieldBirthDate: "1990-05-01",
	}}
	siblingB := Sibling{ID: uuid.New(), Type: models.DocTypeTaxID, Fields: map[string]string{
		models.FieldName:      "carlos pereira",
		models.FieldBirthDate: "1990-05-01",
	}}

	outcome := s.engine.Validate(models.DocTypeIDCard, fields, []Sibling{siblingA, siblingB})

	s.Require().Len(outcome.Inconsistencies, 1)
	s.Equal(models.FieldName, outcome.Inconsistencies[0].Field)
	s.Equal([]uuid.UUID{siblingA.ID, siblingB.ID}, outcome.Inconsistencies[0].Sources)
	s.Len(outcome.Matches, 4)
}

func (s *EngineSuite) TestValidate_MissingFieldsContributeNothing() {
	// The sibling only carries a name: birth date and tax id drop out of
	// both the numerator and the denominator.
	sibling := Sibling{
		ID:     uuid.New(),
		Type:   models.DocTypeTaxID,
		Fields: map[string]string{models.FieldName: "joao silva"},
	}

	outcome := s.engine.Validate(models.DocTypeIDCard, map[string]string{
		models.FieldName:      "joao silva",
		models.FieldBirthDate: "1990-05-01",
		models.FieldTaxID:     "12345678900",
	}, []Sibling{sibling})

	s.Equal(models.StatusValid, outcome.Status)
	s.InDelta(1.0, outcome.Score, 1e-9)
	s.Len(outcome.Matches, 1)
}

func (s *EngineSuite) TestValidate_UnknownPairingIsSkipped() {
	sibling := Sibling{
		ID:     uuid.New(),
		Type:   models.DocTypeOther,
		Fields: map[string]string{models.FieldName: "joao silva"},
	}

	outcome := s.engine.Validate(models.DocTypeIDCard, map[string]string{
		models.FieldName: "joao silva",
	}, []Sibling{sibling})

	s.Equal(models.StatusPending, outcome.Status)
	s.Empty(outcome.Matches)
}

func (s *EngineSuite) TestValidate_Deterministic() {
	fields := map[string]string{
		models.FieldName:      "joao silva",
		models.FieldBirthDate: "1990-05-01",
		models.FieldTaxID:     "12345678900",
	}
	siblings := []Sibling{
		{ID: uuid.New(), Type: models.DocTypeTaxID, Fields: map[string]string{
			models.FieldName:  "pedro almeida",
			models.FieldTaxID: "12345678900",
		}},
		{ID: uuid.New(), Type: models.DocTypeBirthRecord, Fields: map[string]string{
			models.FieldName:      "joao silva",
			models.FieldBirthDate: "1990-05-01",
		}},
	}

	first := s.engine.Validate(models.DocTypeIDCard, fields, siblings)
	for range 20 {
		s.Equal(first, s.engine.Validate(models.DocTypeIDCard, fields, siblings))
	}
}
