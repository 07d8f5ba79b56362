package api

import "github.com/globridge/social-engine/api/validator"

// Validator validates request bodies before they reach a component.
type Validator = validator.Validator

// ValidationError is a single field validation failure.
type ValidationError = validator.ValidationError
