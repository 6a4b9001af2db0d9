package validation

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/pagegraph/internal/errors"
	"github.com/rohankatakam/pagegraph/internal/models"
	"github.com/rohankatakam/pagegraph/internal/storage"
)

// ValidationResult contains the results of one consistency check
type ValidationResult struct {
	Check      string   `json:"check"`
	Checked    int64    `json:"checked"`
	Violations []string `json:"violations"`
	Passed     bool     `json:"passed"`
}

// ConsistencyValidator checks that forward and back edges in a store agree
type ConsistencyValidator struct {
	store  storage.Store
	logger *logrus.Entry
}

// NewConsistencyValidator creates a new consistency validator
func NewConsistencyValidator(store storage.Store, logger *logrus.Logger) *ConsistencyValidator {
	return &ConsistencyValidator{
		store:  store,
		logger: logger.WithField("component", "validation"),
	}
}

// Validate runs every check. Violations are reported in the results; the
// error is only set when the store itself fails.
func (v *ConsistencyValidator) Validate(ctx context.Context) ([]ValidationResult, error) {
	var results []ValidationResult

	contents, err := v.validateContents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to validate page contents: %w", err)
	}
	results = append(results, contents)

	membership, err := v.validateMembership(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to validate page membership: %w", err)
	}
	results = append(results, membership)

	parents, err := v.validateParents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to validate parents: %w", err)
	}
	results = append(results, parents)

	for _, r := range results {
		log := v.logger.WithFields(logrus.Fields{
			"check":      r.Check,
			"checked":    r.Checked,
			"violations": len(r.Violations),
		})
		if r.Passed {
			log.Debug("Consistency check passed")
		} else {
			log.Warn("Consistency check failed")
		}
	}
	return results, nil
}

// validateContents checks that every content ref of every page exists and
// points back at that page
func (v *ConsistencyValidator) validateContents(ctx context.Context) (ValidationResult, error) {
	result := ValidationResult{Check: "contents", Violations: []string{}}

	pages, err := v.store.List(ctx, models.KindPage)
	if err != nil {
		return ValidationResult{}, err
	}
	for _, pageID := range pages {
		page, err := v.page(ctx, pageID)
		if err != nil {
			return ValidationResult{}, err
		}
		seen := make(map[models.Ref]bool, len(page.Contents))
		for _, ref := range page.Contents {
			result.Checked++
			if seen[ref] {
				result.Violations = append(result.Violations, fmt.Sprintf("page:%d lists %s twice", pageID, ref))
				continue
			}
			seen[ref] = true

			bq, err := v.blockquote(ctx, ref)
			if err != nil {
				return ValidationResult{}, err
			}
			if bq == nil {
				result.Violations = append(result.Violations, fmt.Sprintf("page:%d lists missing %s", pageID, ref))
				continue
			}
			if bq.Page.ID != pageID {
				result.Violations = append(result.Violations,
					fmt.Sprintf("page:%d lists %s, which belongs to %s", pageID, ref, bq.Page))
			}
		}
	}

	result.Passed = len(result.Violations) == 0
	return result, nil
}

// validateMembership checks that every blockquote appears in its page's contents
func (v *ConsistencyValidator) validateMembership(ctx context.Context) (ValidationResult, error) {
	result := ValidationResult{Check: "membership", Violations: []string{}}

	ids, err := v.store.List(ctx, models.KindBlockquote)
	if err != nil {
		return ValidationResult{}, err
	}
	for _, id := range ids {
		result.Checked++
		ref := models.NewRef(models.KindBlockquote, id)
		bq, err := v.blockquote(ctx, ref)
		if err != nil {
			return ValidationResult{}, err
		}
		if bq == nil {
			result.Violations = append(result.Violations, fmt.Sprintf("%s is listed but cannot be loaded", ref))
			continue
		}

		page, err := v.page(ctx, bq.Page.ID)
		if errors.IsType(err, errors.ErrorTypeNotFound) {
			result.Violations = append(result.Violations, fmt.Sprintf("%s belongs to missing %s", ref, bq.Page))
			continue
		}
		if err != nil {
			return ValidationResult{}, err
		}
		if !contains(page.Contents, ref) {
			result.Violations = append(result.Violations, fmt.Sprintf("%s is not in the contents of %s", ref, bq.Page))
		}
	}

	result.Passed = len(result.Violations) == 0
	return result, nil
}

// validateParents checks that every parent ref resolves to an element
func (v *ConsistencyValidator) validateParents(ctx context.Context) (ValidationResult, error) {
	result := ValidationResult{Check: "parents", Violations: []string{}}

	ids, err := v.store.List(ctx, models.KindBlockquote)
	if err != nil {
		return ValidationResult{}, err
	}
	for _, id := range ids {
		ref := models.NewRef(models.KindBlockquote, id)
		bq, err := v.blockquote(ctx, ref)
		if err != nil {
			return ValidationResult{}, err
		}
		if bq == nil || bq.Parent == nil {
			continue
		}
		result.Checked++

		if *bq.Parent == ref {
			result.Violations = append(result.Violations, fmt.Sprintf("%s is its own parent", ref))
			continue
		}
		parent, err := v.store.Get(ctx, models.KindElement, bq.Parent.ID)
		if errors.IsType(err, errors.ErrorTypeNotFound) {
			result.Violations = append(result.Violations, fmt.Sprintf("%s has missing parent %s", ref, bq.Parent))
			continue
		}
		if err != nil {
			return ValidationResult{}, err
		}
		if _, err := models.WrapElement(parent); err != nil {
			result.Violations = append(result.Violations, fmt.Sprintf("%s: parent %v", ref, err))
		}
	}

	result.Passed = len(result.Violations) == 0
	return result, nil
}

func (v *ConsistencyValidator) page(ctx context.Context, id models.ID) (*models.Page, error) {
	e, err := v.store.Get(ctx, models.KindPage, id)
	if err != nil {
		return nil, err
	}
	page, ok := e.(*models.Page)
	if !ok {
		return nil, errors.InternalErrorf("page:%d loaded as %T", id, e)
	}
	return page, nil
}

// blockquote returns nil without error when ref does not exist
func (v *ConsistencyValidator) blockquote(ctx context.Context, ref models.Ref) (*models.Blockquote, error) {
	e, err := v.store.Get(ctx, ref.Kind, ref.ID)
	if errors.IsType(err, errors.ErrorTypeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	bq, ok := e.(*models.Blockquote)
	if !ok {
		return nil, errors.InternalErrorf("%s loaded as %T", ref, e)
	}
	return bq, nil
}

func contains(refs []models.Ref, ref models.Ref) bool {
	for _, r := range refs {
		if r == ref {
			return true
		}
	}
	return false
}
