package core

import (
	"math"
	"math/rand"
	"testing"
)

func TestCDF_EmptyIsInvalid(t *testing.T) {
	cdf := NewCDF[string]()
	cdf.Prepare()
	if cdf.Valid() {
		t.Error("Expected empty CDF to be invalid")
	}
	if _, _, ok := cdf.Sample(0.5); ok {
		t.Error("Expected sampling an empty CDF to fail")
	}
}

func TestCDF_AllZeroWeightsIsInvalid(t *testing.T) {
	cdf := NewCDF[int]()
	cdf.Insert(1, 0)
	cdf.Insert(2, 0)
	cdf.Prepare()
	if cdf.Valid() {
		t.Error("Expected all-zero CDF to be invalid")
	}
	if cdf.Empty() {
		t.Error("Expected CDF with items to be non-empty")
	}
}

func TestCDF_SampleFrequencies(t *testing.T) {
	cdf := NewCDF[string]()
	cdf.Insert("a", 1)
	cdf.Insert("zero", 0)
	cdf.Insert("b", 3)
	cdf.Prepare()

	random := rand.New(rand.NewSource(42))
	counts := make([]int, cdf.Len())
	const n = 40000
	for i := 0; i < n; i++ {
		index, prob, ok := cdf.Sample(random.Float64())
		if !ok {
			t.Fatal("Expected valid sample")
		}
		if prob != cdf.Prob(index) {
			t.Fatalf("Expected returned probability %f to match Prob %f", prob, cdf.Prob(index))
		}
		counts[index]++
	}

	if counts[1] != 0 {
		t.Errorf("Expected zero-weight item never sampled, got %d", counts[1])
	}
	if math.Abs(float64(counts[0])/n-0.25) > 0.01 {
		t.Errorf("Expected frequency 0.25 for a, got %f", float64(counts[0])/n)
	}
	if math.Abs(cdf.Prob(2)-0.75) > 1e-12 {
		t.Errorf("Expected probability 0.75 for b, got %f", cdf.Prob(2))
	}
}

func TestCDF_SampleEndpoints(t *testing.T) {
	cdf := NewCDF[int]()
	cdf.Insert(10, 1)
	cdf.Insert(20, 1)
	cdf.Insert(30, 0)
	cdf.Prepare()

	if index, _, _ := cdf.Sample(0); index != 0 {
		t.Errorf("Expected index 0 for u=0, got %d", index)
	}
	if index, _, _ := cdf.Sample(1); index != 1 {
		t.Errorf("Expected index 1 for u=1, got %d", index)
	}
}
