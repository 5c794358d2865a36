package dto

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/cesargomez89/ytmanager/internal/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) ToMap() map[string]string {
	return map[string]string{e.Field: e.Message}
}

func ToMap(errs []ValidationError) map[string]string {
	result := make(map[string]string)
	for _, e := range errs {
		result[e.Field] = e.Message
	}
	return result
}

func ToResponse(errs []ValidationError) string {
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

func validateURL(field, urlVal string) []ValidationError {
	var errs []ValidationError
	if strings.TrimSpace(urlVal) == "" {
		errs = append(errs, ValidationError{Field: field, Message: "is required"})
		return errs
	}
	u, err := url.ParseRequestURI(strings.TrimSpace(urlVal))
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{Field: field, Message: "invalid URL format"})
	}
	return errs
}

func validateName(field string, name *string) []ValidationError {
	var errs []ValidationError
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			errs = append(errs, ValidationError{Field: field, Message: "cannot be empty"})
		} else if len(trimmed) > 255 {
			errs = append(errs, ValidationError{Field: field, Message: "must be at most 255 characters"})
		}
	}
	return errs
}

func validateLimit(field string, limit *int) []ValidationError {
	var errs []ValidationError
	if limit != nil {
		if *limit < -1 {
			errs = append(errs, ValidationError{Field: field, Message: "must be -1 (unlimited) or a positive number"})
		}
	}
	return errs
}

func validateOrder(field string, order *string) []ValidationError {
	var errs []ValidationError
	if order != nil {
		if _, err := domain.ParseDownloadOrder(*order); err != nil {
			errs = append(errs, ValidationError{Field: field, Message: "must be one of newest, oldest, playlist, playlist_reverse, popularity, rating"})
		}
	}
	return errs
}
