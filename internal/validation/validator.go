// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

// Package validation wraps go-playground/validator with the dashboard's
// custom tags. A single validator instance is shared; it caches struct
// metadata and is safe for concurrent use.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/sai-platform/sai-dashboard/internal/models"
)

var (
	instance *validator.Validate
	once     sync.Once
)

// Validator returns the shared validator instance.
func Validator() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())

		// risklevel: value must be one of the known risk levels.
		_ = instance.RegisterValidation("risklevel", func(fl validator.FieldLevel) bool {
			return models.ValidRiskLevel(fl.Field().String())
		})
	})
	return instance
}

// Struct validates a struct and returns a single human-readable error
// listing every failed field.
func Struct(s interface{}) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q validation", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
}
