package gateway

import (
	"reflect"
	"testing"
)

func TestFilterRoundTrip(t *testing.T) {
	start := int64(10)
	where, args, err := NewFilter().
		In("live_id", []string{"A", "B"}).
		Range("start_col", &start, nil).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	const want = "(live_id = ? OR live_id = ?) AND start_col >= ?"
	if where != want {
		t.Fatalf("where = %q, want %q", where, want)
	}
	if !reflect.DeepEqual(args, []any{"A", "B", int64(10)}) {
		t.Fatalf("args = %v, want [A B 10]", args)
	}
}

func TestFilterEmptyProducesNoWhere(t *testing.T) {
	where, args, err := NewFilter().Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if where != "" || args != nil {
		t.Fatalf("empty filter produced where=%q args=%v, want both empty", where, args)
	}
}

func TestFilterRejectsEmptyInSet(t *testing.T) {
	_, _, err := NewFilter().In("live_id", nil).Build()
	if err == nil {
		t.Fatalf("In(nil) succeeded, want ErrEmptyFilterSet")
	}
}

func TestFilterRejectsEmptyInInt64Set(t *testing.T) {
	_, _, err := NewFilter().InInt64("gift_id", []int64{}).Build()
	if err == nil {
		t.Fatalf("InInt64(empty) succeeded, want ErrEmptyFilterSet")
	}
}

func TestFilterRejectsInvertedRange(t *testing.T) {
	start, end := int64(10), int64(5)
	_, _, err := NewFilter().Range("save_time", &start, &end).Build()
	if err == nil {
		t.Fatalf("Range(10, 5) succeeded, want ErrInvalidRange")
	}
}

func TestFilterJoinsMultipleClausesWithAnd(t *testing.T) {
	where, args, err := NewFilter().
		In("live_id", []string{"A"}).
		InInt64("gift_id", []int64{1, 2}).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	const want = "(live_id = ?) AND (gift_id = ? OR gift_id = ?)"
	if where != want {
		t.Fatalf("where = %q, want %q", where, want)
	}
	if !reflect.DeepEqual(args, []any{"A", int64(1), int64(2)}) {
		t.Fatalf("args = %v", args)
	}
}
