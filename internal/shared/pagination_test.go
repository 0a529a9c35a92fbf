package shared

import "testing"

func TestPaginationBoundsAndWrap(t *testing.T) {
	p := NewPagination(1, 10, 23)
	if p.TotalPages != 3 || !p.Paginated() {
		t.Fatalf("unexpected pagination %+v", p)
	}
	start, end := p.Bounds()
	if start != 0 || end != 10 {
		t.Fatalf("first page bounds = %d..%d", start, end)
	}

	p = p.Next().Next()
	start, end = p.Bounds()
	if p.Page != 3 || start != 20 || end != 23 {
		t.Fatalf("last page = %d bounds %d..%d", p.Page, start, end)
	}
	if next := p.Next(); next.Page != 1 {
		t.Fatalf("expected wrap to first page, got %d", next.Page)
	}
}

func TestPaginationDefaults(t *testing.T) {
	p := NewPagination(0, 0, -5)
	if p.Page != 1 || p.PerPage != 10 || p.Total != 0 || p.TotalPages != 0 {
		t.Fatalf("unexpected defaults %+v", p)
	}
	if p.Paginated() {
		t.Fatal("empty listing must not paginate")
	}
	if p.Next().Page != 1 {
		t.Fatal("next of an empty listing stays on the first page")
	}
}
