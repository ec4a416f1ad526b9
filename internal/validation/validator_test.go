// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 == nil {
		t.Fatal("GetValidator() returned nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same instance")
	}
}

type testUser struct {
	Age        int    `json:"age" validate:"gte=1,lte=150"`
	Gender     string `json:"gender" validate:"required,gender"`
	Occupation string `json:"occupation" validate:"required,occupation"`
}

type testFeedback struct {
	UserID int     `json:"user_id" validate:"required,gte=1"`
	ItemID int     `json:"item_id" validate:"required,gte=1"`
	Rating float64 `json:"rating" validate:"gte=1,lte=5"`
	Note   string  `json:"note" validate:"max=10"`
}

func TestValidateStruct_Valid(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
	}{
		{"user", &testUser{Age: 24, Gender: "M", Occupation: "technician"}},
		{"user at bounds", &testUser{Age: 150, Gender: "F", Occupation: "none"}},
		{"feedback", &testFeedback{UserID: 1, ItemID: 10, Rating: 4.5}},
		{"feedback at min rating", &testFeedback{UserID: 1, ItemID: 10, Rating: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateStruct(tt.input); err != nil {
				t.Errorf("ValidateStruct() error = %v", err)
			}
		})
	}
}

func TestValidateStruct_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		input     interface{}
		wantField string
		wantTag   string
	}{
		{"age zero", &testUser{Age: 0, Gender: "M", Occupation: "writer"}, "age", "gte"},
		{"age too high", &testUser{Age: 151, Gender: "M", Occupation: "writer"}, "age", "lte"},
		{"unknown gender", &testUser{Age: 30, Gender: "X", Occupation: "writer"}, "gender", "gender"},
		{"lowercase gender", &testUser{Age: 30, Gender: "m", Occupation: "writer"}, "gender", "gender"},
		{"missing gender", &testUser{Age: 30, Occupation: "writer"}, "gender", "required"},
		{"unknown occupation", &testUser{Age: 30, Gender: "F", Occupation: "astronaut"}, "occupation", "occupation"},
		{"missing user", &testFeedback{ItemID: 1, Rating: 3}, "user_id", "required"},
		{"rating too high", &testFeedback{UserID: 1, ItemID: 1, Rating: 5.5}, "rating", "lte"},
		{"rating too low", &testFeedback{UserID: 1, ItemID: 1, Rating: 0.5}, "rating", "gte"},
		{"note too long", &testFeedback{UserID: 1, ItemID: 1, Rating: 3, Note: "far too long a note"}, "note", "max"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.input)
			if err == nil {
				t.Fatal("ValidateStruct() returned nil, want error")
			}
			found := false
			for _, e := range err.Errors() {
				if e.Field() == tt.wantField && e.Tag() == tt.wantTag {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("want error on %s/%s, got %v", tt.wantField, tt.wantTag, err.Errors())
			}
		})
	}
}

func TestToAPIError_SingleError(t *testing.T) {
	err := ValidateStruct(&testFeedback{UserID: 1, ItemID: 1, Rating: 9})
	if err == nil {
		t.Fatal("expected validation error")
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != ErrorCode {
		t.Errorf("Code = %q, want %q", apiErr.Code, ErrorCode)
	}
	if apiErr.Message != "rating must be less than or equal to 5" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if apiErr.Details["field"] != "rating" {
		t.Errorf("Details[field] = %v, want rating", apiErr.Details["field"])
	}
}

func TestToAPIError_MultipleErrors(t *testing.T) {
	err := ValidateStruct(&testUser{Age: 0, Gender: "Q", Occupation: "pilot"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(err.Errors()) != 3 {
		t.Fatalf("got %d errors, want 3", len(err.Errors()))
	}

	apiErr := err.ToAPIError()
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 3 {
		t.Fatalf("Details[fields] = %v", apiErr.Details["fields"])
	}
	for _, name := range []string{"age", "gender", "occupation"} {
		if !strings.Contains(apiErr.Message, name) {
			t.Errorf("Message %q does not mention %s", apiErr.Message, name)
		}
	}
}

func TestRequestValidationError_Error(t *testing.T) {
	empty := &RequestValidationError{}
	if empty.Error() != "validation failed" {
		t.Errorf("empty Error() = %q", empty.Error())
	}
	if api := empty.ToAPIError(); api.Code != ErrorCode || api.Message != "Validation failed" {
		t.Errorf("empty ToAPIError() = %+v", api)
	}

	err := ValidateStruct(&testFeedback{ItemID: 1, Rating: 3})
	if err == nil || err.Error() != "user_id is required" {
		t.Errorf("Error() = %v, want %q", err, "user_id is required")
	}
}
