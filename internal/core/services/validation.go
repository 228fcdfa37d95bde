package services

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"site-deploy-service/internal/core/domain"
)

var (
	slugPattern  = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	labelPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._+-]*$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("field")
	})
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("label", func(fl validator.FieldLevel) bool {
		return labelPattern.MatchString(fl.Field().String())
	})
	return v
}

type deploymentInput struct {
	Name      string `field:"name" validate:"required,max=255"`
	Subdomain string `field:"subdomain" validate:"required,max=64,slug"`
}

// "latest" names the pointer living next to the version directories.
type versionInput struct {
	Version string `field:"version" validate:"required,max=32,label,ne=latest"`
}

func validateDeployment(name, subdomain string) error {
	return validateStruct(deploymentInput{Name: strings.TrimSpace(name), Subdomain: subdomain})
}

func validateVersion(version string) error {
	return validateStruct(versionInput{Version: version})
}

func validateStruct(in interface{}) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	fe := verrs[0]
	return &domain.FieldError{Field: fe.Field(), Message: describe(fe)}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be empty"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "slug":
		return "may only contain letters, digits, hyphens and underscores"
	case "label":
		return "must start with a letter or digit and may only contain letters, digits, '.', '_', '+' and '-'"
	case "ne":
		return fmt.Sprintf("%q is reserved", fe.Param())
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}
