package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/noah-isme/parts-inventory-api/pkg/errors"
)

type transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// invalidPayload maps validator failures onto InvalidOperation with a readable reason.
func invalidPayload(err error, action string) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return appErrors.WrapInvalid(err, action)
	}
	reasons := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			reasons = append(reasons, fmt.Sprintf("%s must satisfy %s=%s", strings.ToLower(fe.Field()), fe.Tag(), fe.Param()))
			continue
		}
		reasons = append(reasons, fmt.Sprintf("%s must satisfy %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	invalid := appErrors.InvalidOperation(action, strings.Join(reasons, "; "))
	invalid.Err = err
	return invalid
}
