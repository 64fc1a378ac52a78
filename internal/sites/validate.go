// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package sites

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"coursesite/internal/models"
)

const notBlankTag = "notblank"

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Report JSON field names rather than Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, notBlank)
	_ = validate.RegisterTranslation(notBlankTag, translator,
		func(ut.Translator) error { return nil },
		func(ut.Translator, validator.FieldError) string { return "this field cannot be blank" })
}

func notBlank(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}

// check validates in and reports every failing field in one
// models.ValidationError.
func check(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}
	fields := make([]models.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, models.FieldError{Field: fe.Field(), Error: fe.Translate(translator)})
	}
	return &models.ValidationError{Fields: fields}
}

// invalid builds a single-field validation error.
func invalid(field, msg string) error {
	return &models.ValidationError{Fields: []models.FieldError{{Field: field, Error: msg}}}
}

func checkWindow(w models.Window) error {
	if w.From != nil && w.Cutoff != nil && w.Cutoff.Before(*w.From) {
		return invalid("cutoff", "must not be before the start of the editing window")
	}
	return nil
}

// checkContent validates the payload of a block against its type.
func checkContent(c models.BlockContent) error {
	switch v := c.(type) {
	case models.EditorContent:
		if strings.TrimSpace(v.HTML) == "" {
			return invalid("content", "this field cannot be blank")
		}
	case models.PictureButtonContent:
		if !v.LinkType.Valid() {
			return invalid("linktype", "must be one of content, file, url, page")
		}
		switch v.LinkType {
		case models.LinkURL:
			if err := validate.Var(v.URL, "required,url"); err != nil {
				return invalid("url", "must be a valid URL")
			}
		case models.LinkPage:
			if v.PageID <= 0 {
				return invalid("pageid", "must be a page id")
			}
		}
		switch v.Target {
		case "", models.TargetSelf, models.TargetBlank, models.TargetParent, models.TargetTop:
		default:
			return invalid("target", "unknown link target")
		}
	default:
		return invalid("type", "unknown block type")
	}
	return nil
}
