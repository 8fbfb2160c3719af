package pagination

import "testing"

func TestPageRequestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   PageRequest
		want PageRequest
	}{
		{"defaults", PageRequest{}, PageRequest{Page: 1, PageSize: DefaultPageSize}},
		{"kept", PageRequest{Page: 3, PageSize: 10}, PageRequest{Page: 3, PageSize: 10}},
		{"capped", PageRequest{Page: 2, PageSize: 500}, PageRequest{Page: 2, PageSize: MaxPageSize}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Normalize(); got != tt.want {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNewPageResponse(t *testing.T) {
	resp := NewPageResponse([]int{1, 2}, PageRequest{Page: 1, PageSize: 2}, 5)
	if resp.TotalPages != 3 {
		t.Errorf("expected 3 pages, got %d", resp.TotalPages)
	}
	if !resp.HasNext {
		t.Error("expected has_next on page 1 of 3")
	}

	last := NewPageResponse([]int{5}, PageRequest{Page: 3, PageSize: 2}, 5)
	if last.HasNext {
		t.Error("expected no next page on the last page")
	}

	empty := NewPageResponse[int](nil, PageRequest{}, 0)
	if empty.Data == nil || len(empty.Data) != 0 {
		t.Error("expected non-nil empty data slice")
	}
	if empty.TotalPages != 0 || empty.Page != 1 {
		t.Errorf("unexpected empty page metadata: %+v", empty)
	}
}
