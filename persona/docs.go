package persona

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DocTopics lists the documentation topics in dir: the base names of its
// .mdx files, sorted. A missing directory has no topics.
func DocTopics(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var topics []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".mdx" {
			continue
		}
		topics = append(topics, strings.TrimSuffix(e.Name(), ".mdx"))
	}
	sort.Strings(topics)
	return topics, nil
}
