package service

import (
	"regexp"
	"strings"

	"ctfd-bot/internal/domain"
)

var (
	mentionPattern = regexp.MustCompile(`@(\w+)#(\d+)`)
	handlePattern  = regexp.MustCompile(`(.*?)#(\d+)`)
)

// ParseAuthors extracts name#discriminator handles from a description.
// Explicit @mentions win; otherwise the word right before each #digits is
// taken as the name.
func ParseAuthors(description string) []domain.Author {
	if matches := mentionPattern.FindAllStringSubmatch(description, -1); len(matches) > 0 {
		authors := make([]domain.Author, len(matches))
		for i, m := range matches {
			authors[i] = domain.Author{Name: m[1], Discriminator: m[2]}
		}
		return authors
	}

	var authors []domain.Author
	for _, m := range handlePattern.FindAllStringSubmatch(description, -1) {
		words := strings.Split(m[1], " ")
		name := strings.ReplaceAll(words[len(words)-1], "@", "")
		authors = append(authors, domain.Author{Name: name, Discriminator: m[2]})
	}
	return authors
}
