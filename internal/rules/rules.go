// Package rules reads the keyword rules file and the favored-author list.
package rules

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"PaperPoster/internal/domain"
)

// Parse reads a rules file.
//
// Blank lines are ignored. A line starting with '#' or '@' declares a channel,
// optionally followed by "name=N" setting the minimum number of keyword
// matches. Any other line is a keyword for the latest channel, optionally
// followed by "not: a, b" exclusions. A trailing '-' requests whole-token
// matching. The whole file is lowercased.
func Parse(r io.Reader) (domain.Ruleset, error) {
	var (
		set     domain.Ruleset
		channel string
		lineNo  int
	)

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(strings.ToLower(sc.Text()), " \t\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "@") {
			req, err := parseChannel(line)
			if err != nil {
				return domain.Ruleset{}, fmt.Errorf("line %d: %w", lineNo, err)
			}
			channel = req.Name
			set.Channels = upsertChannel(set.Channels, req)
			continue
		}

		rule := parseKeyword(line)
		if rule.Text == "" {
			return domain.Ruleset{}, fmt.Errorf("line %d: empty keyword", lineNo)
		}
		rule.Channel = channel
		set.Rules = append(set.Rules, rule)
	}
	if err := sc.Err(); err != nil {
		return domain.Ruleset{}, fmt.Errorf("read rules: %w", err)
	}

	return set, nil
}

// LoadFile parses the rules file at path. Any failure is a ConfigError.
func LoadFile(path string) (domain.Ruleset, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Ruleset{}, &domain.ConfigError{Path: path, Err: err}
	}
	defer f.Close()

	set, err := Parse(f)
	if err != nil {
		return domain.Ruleset{}, &domain.ConfigError{Path: path, Err: err}
	}
	return set, nil
}

func parseChannel(line string) (domain.ChannelRequirement, error) {
	fields := strings.Fields(line)
	req := domain.ChannelRequirement{Name: fields[0], Min: 1}
	if len(fields) < 2 {
		return req, nil
	}

	_, value, ok := strings.Cut(fields[1], "=")
	if !ok {
		return req, fmt.Errorf("channel %s: malformed requirement %q", req.Name, fields[1])
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return req, fmt.Errorf("channel %s: invalid requirement %q", req.Name, value)
	}
	req.Min = n
	return req, nil
}

func upsertChannel(channels []domain.ChannelRequirement, req domain.ChannelRequirement) []domain.ChannelRequirement {
	for i := range channels {
		if channels[i].Name == req.Name {
			channels[i].Min = req.Min
			return channels
		}
	}
	return append(channels, req)
}

func parseKeyword(line string) domain.KeywordRule {
	kw := line
	var excludes []string
	if before, after, ok := strings.Cut(line, "not:"); ok {
		kw = before
		seen := map[string]bool{}
		for _, x := range strings.Split(after, ",") {
			x = strings.TrimSpace(x)
			if x == "" || seen[x] {
				continue
			}
			seen[x] = true
			excludes = append(excludes, x)
		}
	}
	kw = strings.TrimSpace(kw)

	mode := domain.MatchAny
	if strings.HasSuffix(kw, "-") {
		mode = domain.MatchUnique
		kw = strings.TrimSuffix(kw, "-")
	}

	return domain.KeywordRule{Text: kw, Mode: mode, Excludes: excludes}
}

// ParseAuthors reads "name;Display Name" lines into a lookup keyed by the
// lowercased name.
func ParseAuthors(r io.Reader) (domain.FavoredAuthors, error) {
	authors := domain.FavoredAuthors{}
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		name, display, ok := strings.Cut(line, ";")
		if !ok {
			return nil, fmt.Errorf("line %d: want \"name;display\", got %q", lineNo, line)
		}
		authors[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(display)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read authors: %w", err)
	}
	return authors, nil
}

// LoadAuthors parses the favored-author file at path.
func LoadAuthors(path string) (domain.FavoredAuthors, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &domain.ConfigError{Path: path, Err: err}
	}
	defer f.Close()

	authors, err := ParseAuthors(f)
	if err != nil {
		return nil, &domain.ConfigError{Path: path, Err: err}
	}
	return authors, nil
}

// LoadAddresses reads one email address per line, skipping blanks.
func LoadAddresses(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.ConfigError{Path: path, Err: err}
	}
	return SplitAddresses(strings.ReplaceAll(string(raw), "\n", ",")), nil
}

// SplitAddresses splits a comma separated recipient list.
func SplitAddresses(list string) []string {
	var out []string
	for _, a := range strings.Split(list, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// LoadWebhook returns the first line of the webhook file.
func LoadWebhook(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", &domain.ConfigError{Path: path, Err: err}
	}
	line, _, _ := strings.Cut(string(raw), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return "", &domain.ConfigError{Path: path, Err: fmt.Errorf("webhook file is empty")}
	}
	return line, nil
}
