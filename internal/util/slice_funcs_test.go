package util

import (
	"strconv"
	"testing"
)

func TestMapAndFilter(t *testing.T) {
	got := Map([]int{1, 2, 3}, strconv.Itoa)
	if len(got) != 3 || got[0] != "1" || got[2] != "3" {
		t.Errorf("Map = %v", got)
	}

	even := Filter([]int{1, 2, 3, 4}, func(i int) bool { return i%2 == 0 })
	if len(even) != 2 || even[0] != 2 || even[1] != 4 {
		t.Errorf("Filter = %v", even)
	}
	if none := Filter([]int{1}, func(int) bool { return false }); none != nil {
		t.Errorf("Expected nil slice, got %v", none)
	}
}

func TestDefaultMap(t *testing.T) {
	calls := 0
	m := NewDefaultMap[string, *[]string](func() *[]string {
		calls++
		return &[]string{}
	})

	if _, ok := m.Lookup("a"); ok {
		t.Error("Expected Lookup on an empty map to miss")
	}
	a := m.Get("a")
	*a = append(*a, "x")
	if got := m.Get("a"); len(*got) != 1 || (*got)[0] != "x" {
		t.Errorf("Get(a) = %v", *got)
	}
	if calls != 1 {
		t.Errorf("Expected factory to run once, ran %d times", calls)
	}
	if got, ok := m.Lookup("a"); !ok || len(*got) != 1 {
		t.Errorf("Lookup(a) = %v, %v", got, ok)
	}
	if _, ok := m.Lookup("b"); ok {
		t.Error("Expected Lookup(b) to miss")
	}
	if calls != 1 {
		t.Errorf("Expected Lookup not to call the factory, ran %d times", calls)
	}
}
