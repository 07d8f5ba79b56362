package validator

import (
	"testing"
)

type TestStruct struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Role     string `json:"role" validate:"required,oneof=business investor admin"`
	Optional string `json:"optional"`
}

func TestValidator_ValidateStruct(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		input   interface{}
		wantErr bool
		fields  []string
	}{
		{
			name: "Valid struct",
			input: TestStruct{
				Name:  "Ada Lovelace",
				Email: "ada@example.com",
				Role:  "business",
			},
			wantErr: false,
		},
		{
			name: "Missing required fields",
			input: TestStruct{
				Role: "business",
			},
			wantErr: true,
			fields:  []string{"name", "email"},
		},
		{
			name: "Invalid email",
			input: TestStruct{
				Name:  "Ada Lovelace",
				Email: "not-an-email",
				Role:  "business",
			},
			wantErr: true,
			fields:  []string{"email"},
		},
		{
			name: "Role outside the allowed set",
			input: TestStruct{
				Name:  "Ada Lovelace",
				Email: "ada@example.com",
				Role:  "pirate",
			},
			wantErr: true,
			fields:  []string{"role"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errors := v.ValidateStruct(tt.input)

			if tt.wantErr && len(errors) == 0 {
				t.Error("ValidateStruct() expected errors but got none")
				return
			}

			if !tt.wantErr && len(errors) > 0 {
				t.Errorf("ValidateStruct() got unexpected errors: %v", errors)
				return
			}

			if tt.wantErr {
				foundFields := make([]string, 0)
				for _, err := range errors {
					foundFields = append(foundFields, err.Field)
				}
				for _, expectedField := range tt.fields {
					found := false
					for _, foundField := range foundFields {
						if foundField == expectedField {
							found = true
							break
						}
					}
					if !found {
						t.Errorf("Expected validation error for field %s, but got none", expectedField)
					}
				}
			}
		})
	}
}

func TestValidator_Validate(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		value   interface{}
		tag     string
		wantErr bool
	}{
		{
			name:    "Valid email",
			value:   "test@example.com",
			tag:     "email",
			wantErr: false,
		},
		{
			name:    "Invalid email",
			value:   "not-an-email",
			tag:     "email",
			wantErr: true,
		},
		{
			name:    "Status in the allowed set",
			value:   "accepted",
			tag:     "oneof=pending accepted blocked",
			wantErr: false,
		},
		{
			name:    "Status outside the allowed set",
			value:   "declined",
			tag:     "oneof=pending accepted blocked",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errors := v.Validate(tt.value, tt.tag)

			if tt.wantErr && len(errors) == 0 {
				t.Error("Validate() expected errors but got none")
			}

			if !tt.wantErr && len(errors) > 0 {
				t.Errorf("Validate() got unexpected errors: %v", errors)
			}
		})
	}
}

func TestNew(t *testing.T) {
	v := New()
	if v == nil || v.cli == nil {
		t.Error("New() returned invalid validator")
	}
}
