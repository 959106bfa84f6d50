package repl

import (
	"fmt"
	"io"
	"slices"
)

type resource struct {
	Name string
	URL  string
}

var resourcesByTopic = map[string][]resource{
	"anxiety": {
		{"Anxiety and Depression Association of America", "https://adaa.org"},
		{"Calm App", "https://www.calm.com"},
		{"Healthline: Anxiety Exercises", "https://www.healthline.com/health/mental-health/anxiety-exercises"},
	},
	"depression": {
		{"Depression and Bipolar Support Alliance", "https://www.dbsalliance.org"},
		{"National Institute of Mental Health", "https://www.nimh.nih.gov/health/topics/depression"},
		{"Mental Health America", "https://www.mhanational.org/depression"},
	},
	"crisis": {
		{"988 Suicide & Crisis Lifeline", "https://988lifeline.org"},
		{"Crisis Text Line", "https://www.crisistextline.org"},
		{"International Association for Suicide Prevention", "https://www.iasp.info/resources/Crisis_Centres"},
	},
	"stress": {
		{"American Psychological Association: Stress", "https://www.apa.org/topics/stress"},
		{"Headspace", "https://www.headspace.com"},
		{"Mayo Clinic: Stress Management", "https://www.mayoclinic.org/healthy-lifestyle/stress-management/basics/stress-basics/hlv-20049495"},
	},
}

func topics() []string {
	names := make([]string, 0, len(resourcesByTopic))
	for name := range resourcesByTopic {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// printResources lists resources for topic, or for every topic when it is empty.
func printResources(out io.Writer, topic string) {
	selected := topics()
	if topic != "" {
		if _, ok := resourcesByTopic[topic]; !ok {
			_, _ = fmt.Fprintf(out, "\n  Unknown topic %q. Try one of: %v\n\n", topic, topics())
			return
		}
		selected = []string{topic}
	}

	_, _ = fmt.Fprintln(out)
	for _, name := range selected {
		_, _ = fmt.Fprintf(out, "  %s:\n", name)
		for _, r := range resourcesByTopic[name] {
			_, _ = fmt.Fprintf(out, "    - %s  %s\n", r.Name, r.URL)
		}
	}
	_, _ = fmt.Fprintln(out)
}
