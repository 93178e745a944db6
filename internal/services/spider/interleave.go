package spider

import (
	"net/url"
	"sort"
)

// scoredLink pairs a URL with its admission priority
type scoredLink struct {
	url      string
	priority int
}

// interleaveByHost reorders links so hosts take turns within each
// priority class. Classes emit in ascending priority order; inside a
// class the hosts rotate round-robin, each keeping its own input
// order. Stops one prolific domain from monopolizing the frontier.
func interleaveByHost(links []scoredLink) []scoredLink {
	byPriority := make(map[int]map[string][]string)
	for _, link := range links {
		host := linkHost(link.url)
		hosts, ok := byPriority[link.priority]
		if !ok {
			hosts = make(map[string][]string)
			byPriority[link.priority] = hosts
		}
		hosts[host] = append(hosts[host], link.url)
	}

	priorities := make([]int, 0, len(byPriority))
	for priority := range byPriority {
		priorities = append(priorities, priority)
	}
	sort.Ints(priorities)

	ordered := make([]scoredLink, 0, len(links))
	for _, priority := range priorities {
		queues := byPriority[priority]
		hosts := make([]string, 0, len(queues))
		for host := range queues {
			hosts = append(hosts, host)
		}
		sort.Strings(hosts)

		for remaining := true; remaining; {
			remaining = false
			for _, host := range hosts {
				if len(queues[host]) == 0 {
					continue
				}
				ordered = append(ordered, scoredLink{url: queues[host][0], priority: priority})
				queues[host] = queues[host][1:]
				if len(queues[host]) > 0 {
					remaining = true
				}
			}
		}
	}
	return ordered
}

// linkHost extracts the host of a link; unparseable links share one
// bucket so they still take part in the rotation.
func linkHost(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return "unknown"
	}
	return parsed.Host
}
