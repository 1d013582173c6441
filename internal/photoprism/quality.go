package photoprism

import (
	"fmt"
	"io"
	"sort"
	"time"

	"photo-cleaner/internal/manifest"
)

// FilterLowQuality keeps the photos rated at or below threshold. Unrated
// photos count as DefaultQuality.
func FilterLowQuality(photos []Photo, threshold int) []Photo {
	var low []Photo
	for _, p := range photos {
		if p.EffectiveQuality() <= threshold {
			low = append(low, p)
		}
	}
	return low
}

// Bucket is one row of a distribution.
type Bucket struct {
	Key   string
	Count int
}

// QualityDistribution counts photos per rated quality, ascending. Unrated
// photos are counted under quality 0.
func QualityDistribution(photos []Photo) []Bucket {
	counts := make(map[int]int)
	for _, p := range photos {
		q := 0
		if p.Quality != nil {
			q = *p.Quality
		}
		counts[q]++
	}

	qualities := make([]int, 0, len(counts))
	for q := range counts {
		qualities = append(qualities, q)
	}
	sort.Ints(qualities)

	buckets := make([]Bucket, 0, len(qualities))
	for _, q := range qualities {
		buckets = append(buckets, Bucket{Key: fmt.Sprint(q), Count: counts[q]})
	}
	return buckets
}

// TypeDistribution counts photos per file type, most frequent first.
func TypeDistribution(photos []Photo) []Bucket {
	counts := make(map[string]int)
	for _, p := range photos {
		t := p.Type
		if t == "" {
			t = "Unknown"
		}
		counts[t]++
	}

	buckets := make([]Bucket, 0, len(counts))
	for t, n := range counts {
		buckets = append(buckets, Bucket{Key: t, Count: n})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Key < buckets[j].Key
	})
	return buckets
}

// WriteManifest writes the file names of photos as a batch manifest.
func WriteManifest(w io.Writer, photos []Photo) error {
	entries := make([]manifest.Entry, 0, len(photos))
	for _, p := range photos {
		entries = append(entries, manifest.Entry{FileName: p.FileName})
	}
	return manifest.Write(w, entries)
}

// ManifestName is the default output name for a manifest written at t.
func ManifestName(t time.Time) string {
	return fmt.Sprintf("low_quality_photos_%s.json", t.Format("20060102_150405"))
}
