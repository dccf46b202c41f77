package pagination

import "testing"

func TestParamsNormalize(t *testing.T) {
	got := Params{Page: 0, Limit: 500}.Normalize()
	if got.Page != 1 || got.Limit != MaxLimit {
		t.Fatalf("unexpected normalized params %+v", got)
	}
	if got := (Params{Page: 3, Limit: 10}).Offset(); got != 20 {
		t.Fatalf("expected offset 20, got %d", got)
	}
	if got := (Params{}).Offset(); got != 0 {
		t.Fatalf("expected offset 0, got %d", got)
	}
}

func TestTotalPages(t *testing.T) {
	cases := []struct {
		total int64
		limit int
		want  int
	}{
		{total: 0, limit: 10, want: 0},
		{total: 1, limit: 10, want: 1},
		{total: 10, limit: 10, want: 1},
		{total: 11, limit: 10, want: 2},
		{total: 30, limit: 0, want: 2},
	}
	for _, tc := range cases {
		if got := TotalPages(tc.total, tc.limit); got != tc.want {
			t.Fatalf("TotalPages(%d,%d)=%d want %d", tc.total, tc.limit, got, tc.want)
		}
	}
}

func TestNewPageNeverReturnsNilItems(t *testing.T) {
	page := NewPage[string](nil, 0, Params{Page: 2, Limit: 5})
	if page.Items == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if page.Page != 2 || page.Limit != 5 || page.Pages != 0 {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestMapPageKeepsCounters(t *testing.T) {
	page := NewPage([]int{1, 2}, 12, Params{Page: 2, Limit: 2})
	mapped := MapPage(page, func(items []int) []string {
		out := make([]string, 0, len(items))
		for range items {
			out = append(out, "x")
		}
		return out
	})
	if len(mapped.Items) != 2 || mapped.Total != 12 || mapped.Page != 2 || mapped.Pages != 6 {
		t.Fatalf("unexpected mapped page %+v", mapped)
	}
}
