package spider

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterleaveByHost_RotatesHostsWithinPriority(t *testing.T) {
	links := []scoredLink{
		{url: "https://a.com/1", priority: 0},
		{url: "https://a.com/2", priority: 0},
		{url: "https://a.com/3", priority: 0},
		{url: "https://b.com/1", priority: 0},
		{url: "https://b.com/2", priority: 0},
		{url: "https://c.com/1", priority: 0},
	}

	ordered := interleaveByHost(links)
	require.Len(t, ordered, 6)

	got := make([]string, len(ordered))
	for i, link := range ordered {
		got[i] = link.url
	}
	assert.Equal(t, []string{
		"https://a.com/1",
		"https://b.com/1",
		"https://c.com/1",
		"https://a.com/2",
		"https://b.com/2",
		"https://a.com/3",
	}, got)
}

func TestInterleaveByHost_PriorityClassesStaySeparate(t *testing.T) {
	links := []scoredLink{
		{url: "https://a.com/ordinary", priority: 0},
		{url: "https://b.com/urgent", priority: -10},
		{url: "https://a.com/urgent", priority: -10},
		{url: "https://c.com/deferred", priority: 10},
	}

	ordered := interleaveByHost(links)
	require.Len(t, ordered, 4)

	// All of class -10 before class 0 before class 10
	assert.Equal(t, -10, ordered[0].priority)
	assert.Equal(t, -10, ordered[1].priority)
	assert.Equal(t, 0, ordered[2].priority)
	assert.Equal(t, 10, ordered[3].priority)

	// Hosts emit in sorted order within the class
	assert.Equal(t, "https://a.com/urgent", ordered[0].url)
	assert.Equal(t, "https://b.com/urgent", ordered[1].url)
}

// Forty links across four hosts: every window of four consecutive
// emissions contains each host exactly once.
func TestInterleaveByHost_WindowCoversEveryHost(t *testing.T) {
	hosts := []string{"a.com", "b.com", "c.com", "d.com"}
	links := make([]scoredLink, 0, 40)
	for _, host := range hosts {
		for i := 0; i < 10; i++ {
			links = append(links, scoredLink{
				url:      fmt.Sprintf("https://%s/story-%d", host, i),
				priority: 0,
			})
		}
	}

	ordered := interleaveByHost(links)
	require.Len(t, ordered, 40)

	for start := 0; start+4 <= 40; start += 4 {
		seen := make(map[string]int)
		for _, link := range ordered[start : start+4] {
			seen[linkHost(link.url)]++
		}
		for _, host := range hosts {
			assert.Equal(t, 1, seen[host], "window at %d missing host %s", start, host)
		}
	}
}

func TestInterleaveByHost_PreservesPerHostOrder(t *testing.T) {
	links := []scoredLink{
		{url: "https://a.com/first", priority: 0},
		{url: "https://b.com/only", priority: 0},
		{url: "https://a.com/second", priority: 0},
		{url: "https://a.com/third", priority: 0},
	}

	ordered := interleaveByHost(links)

	var aLinks []string
	for _, link := range ordered {
		if linkHost(link.url) == "a.com" {
			aLinks = append(aLinks, link.url)
		}
	}
	assert.Equal(t, []string{
		"https://a.com/first",
		"https://a.com/second",
		"https://a.com/third",
	}, aLinks)
}

func TestInterleaveByHost_HostlessLinksShareBucket(t *testing.T) {
	links := []scoredLink{
		{url: "/relative/path-only", priority: 0},
		{url: "no-scheme-link", priority: 0},
		{url: "https://a.com/real", priority: 0},
	}

	ordered := interleaveByHost(links)
	require.Len(t, ordered, 3)

	// First round emits one link per bucket: a.com plus the shared
	// unknown bucket, then the unknown bucket's second entry
	assert.Equal(t, "https://a.com/real", ordered[0].url)
	assert.Equal(t, "/relative/path-only", ordered[1].url)
	assert.Equal(t, "no-scheme-link", ordered[2].url)
}

func TestInterleaveByHost_Empty(t *testing.T) {
	assert.Empty(t, interleaveByHost(nil))
	assert.Empty(t, interleaveByHost([]scoredLink{}))
}
