// Package pagination derives page metadata and navigation links from a cursor.
package pagination

import (
	"net/url"
	"strconv"
	"strings"
)

// Links holds navigation URLs. Next and Prev are empty when no such page exists.
type Links struct {
	First string `json:"first"`
	Last  string `json:"last"`
	Next  string `json:"next,omitempty"`
	Prev  string `json:"prev,omitempty"`
}

// TotalPages returns ceil(total/pageSize), never less than one.
func TotalPages(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}

// BuildLinks renders first/last/next/prev links for page out of totalPages. The extra
// query values are carried on every link; page and pageSize are always set last.
func BuildLinks(baseURL string, page, pageSize, totalPages int, extra url.Values) Links {
	if totalPages < 1 {
		totalPages = 1
	}
	links := Links{
		First: pageURL(baseURL, 1, pageSize, extra),
		Last:  pageURL(baseURL, totalPages, pageSize, extra),
	}
	if page < totalPages {
		links.Next = pageURL(baseURL, page+1, pageSize, extra)
	}
	if page > 1 {
		prev := page - 1
		if prev > totalPages {
			prev = totalPages
		}
		links.Prev = pageURL(baseURL, prev, pageSize, extra)
	}
	return links
}

func pageURL(baseURL string, page, pageSize int, extra url.Values) string {
	query := url.Values{}
	for key, values := range extra {
		for _, v := range values {
			if v != "" {
				query.Add(key, v)
			}
		}
	}
	query.Set("page", strconv.Itoa(page))
	query.Set("pageSize", strconv.Itoa(pageSize))
	sep := "?"
	if strings.Contains(baseURL, "?") {
		sep = "&"
	}
	return baseURL + sep + query.Encode()
}
