package dto

import (
	"testing"

	"github.com/cesargomez89/ytmanager/internal/domain"
)

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{Field: "name", Message: "is required"}
	if err.Error() != "name: is required" {
		t.Errorf("Error() = %q, want %q", err.Error(), "name: is required")
	}
}

func TestToMap(t *testing.T) {
	errs := []ValidationError{
		{Field: "url", Message: "is required"},
		{Field: "download_limit", Message: "invalid"},
	}
	m := ToMap(errs)
	if len(m) != 2 || m["url"] != "is required" || m["download_limit"] != "invalid" {
		t.Errorf("ToMap() = %v", m)
	}
}

func TestToResponse(t *testing.T) {
	errs := []ValidationError{
		{Field: "url", Message: "is required"},
		{Field: "name", Message: "invalid"},
	}
	resp := ToResponse(errs)
	expected := "url: is required; name: invalid"
	if resp != expected {
		t.Errorf("ToResponse() = %q, want %q", resp, expected)
	}
}

func TestAddSubscriptionRequestValidate(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantErrs int
	}{
		{"youtube playlist", "https://www.youtube.com/playlist?list=PL1", 0},
		{"custom scheme", "mock://pl", 0},
		{"empty", "  ", 1},
		{"relative", "youtube.com/@x", 1},
		{"no host", "https://", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &AddSubscriptionRequest{URL: tt.url}
			if errs := r.Validate(); len(errs) != tt.wantErrs {
				t.Errorf("Validate() = %v, want %d errors", errs, tt.wantErrs)
			}
		})
	}
}

func TestSubscriptionUpdateRequestValidate(t *testing.T) {
	empty := " "
	order := "sideways"
	limit := -2
	valid := 3

	tests := []struct {
		name     string
		req      SubscriptionUpdateRequest
		wantErrs int
	}{
		{"nothing", SubscriptionUpdateRequest{}, 0},
		{"valid limit", SubscriptionUpdateRequest{DownloadLimit: &valid}, 0},
		{"empty name", SubscriptionUpdateRequest{Name: &empty}, 1},
		{"bad order", SubscriptionUpdateRequest{DownloadOrder: &order}, 1},
		{"bad limit", SubscriptionUpdateRequest{DownloadLimit: &limit}, 1},
		{"unknown inherit", SubscriptionUpdateRequest{Inherit: []string{"name"}}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if errs := tt.req.Validate(); len(errs) != tt.wantErrs {
				t.Errorf("Validate() = %v, want %d errors", errs, tt.wantErrs)
			}
		})
	}
}

func TestSubscriptionUpdateRequestApply(t *testing.T) {
	on := true
	limit := 4
	order := "rating"
	oldOrder := domain.OrderNewest
	sub := &domain.Subscription{Name: "Old", AutoDeleteWatched: &on, DownloadOrder: &oldOrder}

	name := "  New name "
	req := SubscriptionUpdateRequest{
		Name:          &name,
		DownloadLimit: &limit,
		DownloadOrder: &order,
		Inherit:       []string{FieldAutoDeleteWatched},
	}
	req.Apply(sub)

	if sub.Name != "New name" {
		t.Errorf("Name = %q", sub.Name)
	}
	if sub.DownloadLimit == nil || *sub.DownloadLimit != 4 {
		t.Errorf("DownloadLimit = %v", sub.DownloadLimit)
	}
	if sub.DownloadOrder == nil || *sub.DownloadOrder != domain.OrderRating {
		t.Errorf("DownloadOrder = %v", sub.DownloadOrder)
	}
	if sub.AutoDeleteWatched != nil {
		t.Errorf("AutoDeleteWatched should inherit, got %v", *sub.AutoDeleteWatched)
	}
	if sub.AutoDownload != nil {
		t.Errorf("AutoDownload should be untouched")
	}
}

func TestPreferencesRequest(t *testing.T) {
	limit := 10
	order := "oldest"
	req := PreferencesRequest{DownloadGlobalLimit: &limit, DownloadOrder: &order, DownloadPath: "relative/dir"}

	if errs := req.Validate(); len(errs) != 1 || errs[0].Field != "download_path" {
		t.Fatalf("Validate() = %v, want a download_path error", errs)
	}

	req.DownloadPath = "/media/videos"
	if errs := req.Validate(); len(errs) != 0 {
		t.Fatalf("Validate() = %v", errs)
	}
	prefs := req.ToPreferences()
	if *prefs.DownloadGlobalLimit != 10 || *prefs.DownloadOrder != domain.OrderOldest || prefs.DownloadPath != "/media/videos" {
		t.Errorf("unexpected preferences %+v", prefs)
	}
	if prefs.AutoDownload != nil {
		t.Errorf("unset fields must stay nil")
	}
}

func TestNewPagination(t *testing.T) {
	tests := []struct {
		page, size, returned int
		wantNext, wantPrev   bool
		wantOffset           int
	}{
		{page: 1, size: 10, returned: 10, wantNext: true, wantOffset: 0},
		{page: 2, size: 10, returned: 3, wantPrev: true, wantOffset: 10},
		{page: 0, size: 0, returned: 0, wantOffset: 0},
	}
	for _, tt := range tests {
		p := NewPagination(tt.page, tt.size, tt.returned)
		if p.HasNext != tt.wantNext || p.HasPrev != tt.wantPrev || p.Offset() != tt.wantOffset {
			t.Errorf("NewPagination(%d, %d, %d) = %+v, offset %d", tt.page, tt.size, tt.returned, p, p.Offset())
		}
	}
}
