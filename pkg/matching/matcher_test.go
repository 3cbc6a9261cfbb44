// pkg/matching/matcher_test.go
package matching

import "testing"

func TestSimilarity(t *testing.T) {
	if score := Similarity("Rock", "rock"); score != 100 {
		t.Errorf("Ожидалось полное совпадение, получено %d", score)
	}
	if score := Similarity("", ""); score != 100 {
		t.Errorf("Пустые строки должны совпадать, получено %d", score)
	}
	if score := Similarity("abc", "xyz"); score > 0 {
		t.Errorf("Ожидалось нулевое совпадение, получено %d", score)
	}
}

func TestClosest(t *testing.T) {
	options := []string{"rock", "pop", "hip_hop_rap", "electronic"}
	if got := Closest("rokc", options, 40); got != "rock" {
		t.Errorf("Ожидалось rock, получено %q", got)
	}
	if got := Closest("zzzzzzzz", options, 60); got != "" {
		t.Errorf("Ожидалась пустая подсказка, получено %q", got)
	}
}
