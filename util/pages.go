package util

import (
	"html/template"
	"slices"
	"strconv"
)

// Pages returns non-consecutive page numbers from 1 to numPages. Pages near currentPage are included, the distance doubles with each step.
func Pages(currentPage int, numPages int) []int {

	if numPages < 1 {
		return nil
	}

	var pages = []int{1, numPages}
	if currentPage >= 1 && currentPage <= numPages {
		pages = append(pages, currentPage)
	}

	for delta := 1; delta < numPages; delta *= 2 {
		if p := currentPage - delta; p > 1 {
			pages = append(pages, p)
		}
		if p := currentPage + delta; p < numPages {
			pages = append(pages, p)
		}
	}

	slices.Sort(pages)
	return slices.Compact(pages)
}

// PageLinks calls Pages and renders links with href(page). The current page is not linked.
func PageLinks(currentPage int, numPages int, href func(page int) string) []template.HTML {

	var links []template.HTML

	if currentPage < 1 || numPages < 1 {
		return links
	}

	var link = func(page int, text string) template.HTML {
		return template.HTML(`<a href="` + template.HTMLEscapeString(href(page)) + `">` + text + `</a>`)
	}

	if currentPage > 1 {
		links = append(links, link(currentPage-1, "&laquo;"))
	}

	for _, page := range Pages(currentPage, numPages) {
		if page == currentPage {
			links = append(links, template.HTML(`<strong>`+strconv.Itoa(page)+`</strong>`))
		} else {
			links = append(links, link(page, strconv.Itoa(page)))
		}
	}

	if currentPage < numPages {
		links = append(links, link(currentPage+1, "&raquo;"))
	}

	return links
}
