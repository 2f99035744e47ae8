package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	assert.Equal(t, "ASC", ValidateSortOrder("asc"))
	assert.Equal(t, "ASC", ValidateSortOrder("  ASC "))
	assert.Equal(t, "DESC", ValidateSortOrder(""))
	assert.Equal(t, "DESC", ValidateSortOrder("desc"))
	assert.Equal(t, "DESC", ValidateSortOrder("ASC; DROP TABLE accountabilities;--"))
}

func TestValidateSortField_Accountability(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "created_at"},
		{"academic_year", "academic_year"},
		{" accounting_percentage ", "accounting_percentage"},
		{"total_disbursed", "total_disbursed"},
		{"SCHOOL_NAME", "created_at"},
		{"school_name desc", "created_at"},
		{"code'--", "created_at"},
		{"tranches", "created_at"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateSortField(tt.input, AccountabilitySortFields, "created_at"))
		})
	}
}
