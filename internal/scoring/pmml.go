package scoring

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/beevik/etree"

	"github.com/Dan9191/loan-assessment/internal/models"
)

// DefaultTargetCategory is the regression table scored when the model
// document does not say otherwise.
const DefaultTargetCategory = "Approved"

type term struct {
	index       int
	coefficient float64
	exponent    float64
}

// PMMLModel is a regression classifier read from a PMML document.
// Only NumericPredictor terms are supported; predictor names must match
// models.FeatureNames.
type PMMLModel struct {
	intercept     float64
	terms         []term
	normalization string
}

// LoadPMML reads a PMML model from a file
func LoadPMML(path, targetCategory string) (*PMMLModel, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return nil, fmt.Errorf("failed to read model %s: %w", path, err)
	}
	return parsePMML(doc, targetCategory)
}

// ParsePMML reads a PMML model from raw XML
func ParsePMML(raw []byte, targetCategory string) (*PMMLModel, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("failed to parse model XML: %w", err)
	}
	return parsePMML(doc, targetCategory)
}

func parsePMML(doc *etree.Document, targetCategory string) (*PMMLModel, error) {
	regression := doc.FindElement("//RegressionModel")
	if regression == nil {
		return nil, fmt.Errorf("no RegressionModel element in model document")
	}

	model := &PMMLModel{
		normalization: regression.SelectAttrValue("normalizationMethod", "none"),
	}
	switch model.normalization {
	case "logit", "none":
	default:
		return nil, fmt.Errorf("unsupported normalization method %q", model.normalization)
	}

	tables := regression.FindElements("./RegressionTable")
	if len(tables) == 0 {
		return nil, fmt.Errorf("no RegressionTable in model document")
	}
	if targetCategory == "" {
		targetCategory = DefaultTargetCategory
	}
	var table *etree.Element
	for _, t := range tables {
		if t.SelectAttrValue("targetCategory", "") == targetCategory {
			table = t
			break
		}
	}
	if table == nil {
		// A lone table applies to any target.
		if len(tables) > 1 {
			return nil, fmt.Errorf("no RegressionTable for target category %q", targetCategory)
		}
		table = tables[0]
	}

	var err error
	if model.intercept, err = floatAttr(table, "intercept", 0); err != nil {
		return nil, err
	}

	for _, p := range table.FindElements("./NumericPredictor") {
		name := p.SelectAttrValue("name", "")
		idx := models.FeatureIndex(name)
		if idx < 0 {
			return nil, fmt.Errorf("unknown predictor %q", name)
		}
		coef, err := floatAttr(p, "coefficient", math.NaN())
		if err != nil {
			return nil, err
		}
		if math.IsNaN(coef) {
			return nil, fmt.Errorf("predictor %q has no coefficient", name)
		}
		exp, err := floatAttr(p, "exponent", 1)
		if err != nil {
			return nil, err
		}
		model.terms = append(model.terms, term{index: idx, coefficient: coef, exponent: exp})
	}

	return model, nil
}

func floatAttr(el *etree.Element, key string, def float64) (float64, error) {
	raw := el.SelectAttrValue(key, "")
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s %q on %s: %w", key, raw, el.Tag, err)
	}
	return v, nil
}

// Score evaluates the regression table and applies the normalization.
func (m *PMMLModel) Score(_ context.Context, features models.FeatureVector) (float64, error) {
	y := m.intercept
	for _, t := range m.terms {
		x := features[t.index]
		if t.exponent != 1 {
			x = math.Pow(x, t.exponent)
		}
		y += t.coefficient * x
	}
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return 0, fmt.Errorf("model produced non-finite value")
	}

	if m.normalization == "logit" {
		return 1 / (1 + math.Exp(-y)), nil
	}
	return y, nil
}
