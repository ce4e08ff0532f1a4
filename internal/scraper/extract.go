package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// sectionClimb bounds how many ancestor levels a heading is walked upward
// before falling back to the closest sectioning element.
const sectionClimb = 4

// dateRangeRe recognizes text that reads like a date range or duration
// ("Jan 2020 - Present · 3 yrs"). Used to tell apart the date and location
// captions, which share identical markup.
var dateRangeRe = regexp.MustCompile(`(?i)\b(19|20)\d{2}\b|\bpresent\b|\b\d+\s*(yrs?|mos?)\b`)

// Extract builds a best-effort Payload from a rendered profile document.
// Every field is located through an ordered fallback chain of selectors; a
// broken or non-matching selector degrades that one field and nothing else.
func Extract(doc *goquery.Document) *Payload {
	p := NewPayload()

	name := chainText(doc.Selection,
		"main h1",
		"h1.text-heading-xlarge",
		".pv-text-details__left-panel h1",
		"h1")
	p.FirstName, p.LastName = splitName(name)

	p.Headline = chainText(doc.Selection,
		".pv-text-details__left-panel .text-body-medium",
		"main .text-body-medium.break-words",
		".top-card-layout__headline")

	p.Location = chainText(doc.Selection,
		".pv-text-details__left-panel span.text-body-small.t-black--light",
		"main span.text-body-small.inline.t-black--light.break-words",
		".top-card__subline-item")

	p.About = extractAbout(doc)
	p.ContactLinks = extractContactLinks(doc)
	p.WorkExperience = extractExperience(doc)
	p.Education = extractEducation(doc)
	p.Projects = extractProjects(doc)
	p.Skills = extractSkills(doc)

	// Raw text last: it mutates the document by stripping non-visible nodes.
	p.RawText = extractRawText(doc)

	return p
}

func extractAbout(doc *goquery.Document) string {
	sec := findSection(doc, "about")
	if sec == nil {
		return ""
	}
	if text := chainText(sec,
		"div.inline-show-more-text span[aria-hidden=true]",
		".inline-show-more-text",
		"p"); text != "" {
		return text
	}
	// Last resort: section text minus its own heading.
	text := collapseSpace(sec.Text())
	return strings.TrimSpace(strings.TrimPrefix(text, "About"))
}

func extractContactLinks(doc *goquery.Document) []string {
	links := []string{}
	seen := map[string]bool{}

	scope := doc.Selection
	if sec := findSection(doc, "contact"); sec != nil {
		scope = sec
	} else if top := firstMatch(doc.Selection, ".pv-text-details__left-panel", ".top-card-layout__entity-info", "main section"); top != nil {
		scope = top
	}

	scope.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !strings.HasPrefix(href, "http") {
			return
		}
		if seen[href] {
			return
		}
		seen[href] = true
		links = append(links, href)
	})
	return links
}

func extractExperience(doc *goquery.Document) []Experience {
	entries := []Experience{}
	sec := findSection(doc, "experience")
	if sec == nil {
		return entries
	}

	for _, item := range topLevelItems(sec, "li.artdeco-list__item", "ul > li", "li") {
		position := chainText(item,
			"div.display-flex.align-items-center span[aria-hidden=true]",
			".t-bold span[aria-hidden=true]",
			".t-bold",
			"h3")
		company, employmentType := splitCompany(chainText(item,
			"span.t-14.t-normal:not(.t-black--light) span[aria-hidden=true]",
			"span.t-14.t-normal:not(.t-black--light)",
			"h4"))
		dateRange, location := splitCaptions(captionTexts(item))
		description := chainText(item,
			"div.inline-show-more-text span[aria-hidden=true]",
			".inline-show-more-text",
			"p")

		// An entry without any identifying field is markup noise, not a job.
		if position == "" && company == "" {
			continue
		}
		entries = append(entries, Experience{
			Position:       position,
			Company:        company,
			EmploymentType: employmentType,
			DateRange:      dateRange,
			Location:       location,
			Description:    description,
		})
	}
	return entries
}

func extractEducation(doc *goquery.Document) []Education {
	entries := []Education{}
	sec := findSection(doc, "education")
	if sec == nil {
		return entries
	}

	for _, item := range topLevelItems(sec, "li.artdeco-list__item", "ul > li", "li") {
		school := chainText(item,
			"div.display-flex.align-items-center span[aria-hidden=true]",
			".t-bold span[aria-hidden=true]",
			".t-bold",
			"h3")
		degree, field := splitDegree(chainText(item,
			"span.t-14.t-normal:not(.t-black--light) span[aria-hidden=true]",
			"span.t-14.t-normal:not(.t-black--light)",
			"h4"))
		dateRange, _ := splitCaptions(captionTexts(item))
		description := chainText(item,
			"div.inline-show-more-text span[aria-hidden=true]",
			".inline-show-more-text",
			"p")

		if school == "" && degree == "" {
			continue
		}
		entries = append(entries, Education{
			School:      school,
			Degree:      degree,
			Field:       field,
			DateRange:   dateRange,
			Description: description,
		})
	}
	return entries
}

func extractProjects(doc *goquery.Document) []Project {
	entries := []Project{}
	sec := findSection(doc, "projects")
	if sec == nil {
		return entries
	}

	for _, item := range topLevelItems(sec, "li.artdeco-list__item", "ul > li", "li") {
		name := chainText(item,
			"div.display-flex.align-items-center span[aria-hidden=true]",
			".t-bold span[aria-hidden=true]",
			".t-bold",
			"h3")
		dateRange, _ := splitCaptions(captionTexts(item))
		description := chainText(item,
			"div.inline-show-more-text span[aria-hidden=true]",
			".inline-show-more-text",
			"p")
		url := ""
		item.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			if href, _ := a.Attr("href"); strings.HasPrefix(href, "http") {
				url = href
				return false
			}
			return true
		})

		if name == "" {
			continue
		}
		entries = append(entries, Project{
			Name:        name,
			DateRange:   dateRange,
			Description: description,
			URL:         url,
		})
	}
	return entries
}

func extractSkills(doc *goquery.Document) []string {
	skills := []string{}
	sec := findSection(doc, "skills")
	if sec == nil {
		return skills
	}

	seen := map[string]bool{}
	for _, item := range topLevelItems(sec, "li.artdeco-list__item", "ul > li", "li") {
		skill := chainText(item,
			".t-bold span[aria-hidden=true]",
			".t-bold",
			"span[aria-hidden=true]")
		if skill == "" || seen[skill] {
			continue
		}
		seen[skill] = true
		skills = append(skills, skill)
	}
	return skills
}

// extractRawText captures the visible text of the main content region,
// whitespace-collapsed and truncated to MaxRawText runes. Always captured so
// the normalizer has a recovery path when structured fields come up sparse.
func extractRawText(doc *goquery.Document) string {
	doc.Find("script, style, noscript").Remove()
	region := doc.Find("main")
	if region.Length() == 0 {
		region = doc.Find("body")
	}
	text := collapseSpace(region.Text())
	runes := []rune(text)
	if len(runes) > MaxRawText {
		text = string(runes[:MaxRawText])
	}
	return text
}

// findSection locates the structural container for a labeled profile section
// by scanning heading-like elements for a lower-cased substring match, then
// walking a bounded number of ancestor levels to the enclosing card. Returns
// nil when no heading matches.
func findSection(doc *goquery.Document, label string) *goquery.Selection {
	label = strings.ToLower(label)

	var heading *goquery.Selection
	doc.Find("h1, h2, h3, h4, h5, h6, [role=heading]").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if strings.Contains(strings.ToLower(collapseSpace(h.Text())), label) {
			heading = h
			return false
		}
		return true
	})
	if heading == nil {
		return nil
	}

	cur := heading
	for i := 0; i < sectionClimb; i++ {
		parent := cur.Parent()
		if parent.Length() == 0 {
			break
		}
		if parent.Is("section, .artdeco-card, [data-view-name]") {
			return parent
		}
		cur = parent
	}
	if sec := heading.Closest("section"); sec.Length() > 0 {
		return sec
	}
	return heading.Parent()
}

// topLevelItems queries candidate list items through a fallback chain and
// keeps only items not nested inside another candidate, so sub-entries are
// never double-counted as top-level entries.
func topLevelItems(sec *goquery.Selection, selectors ...string) []*goquery.Selection {
	var candidates *goquery.Selection
	for _, sel := range selectors {
		if found := sec.Find(sel); found.Length() > 0 {
			candidates = found
			break
		}
	}
	if candidates == nil {
		return nil
	}

	inSet := map[*html.Node]bool{}
	candidates.Each(func(_ int, s *goquery.Selection) {
		for _, n := range s.Nodes {
			inSet[n] = true
		}
	})

	var items []*goquery.Selection
	candidates.Each(func(_ int, s *goquery.Selection) {
		node := s.Nodes[0]
		for parent := node.Parent; parent != nil; parent = parent.Parent {
			if inSet[parent] {
				return
			}
		}
		items = append(items, s)
	})
	return items
}

// chainText tries each selector in order against scope and returns the first
// non-empty trimmed text. Invalid selectors simply match nothing and are
// skipped, which is what makes a partially broken chain degrade one field
// instead of aborting the scrape.
func chainText(scope *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		if text := collapseSpace(scope.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// firstMatch returns the first selector's non-empty selection, nil otherwise.
func firstMatch(scope *goquery.Selection, selectors ...string) *goquery.Selection {
	for _, sel := range selectors {
		if found := scope.Find(sel).First(); found.Length() > 0 {
			return found
		}
	}
	return nil
}

// captionTexts collects the small-print caption lines of a list item (dates,
// locations, durations), which all share the same muted markup.
func captionTexts(item *goquery.Selection) []string {
	var texts []string
	seen := map[string]bool{}
	sel := item.Find("span.t-14.t-normal.t-black--light span[aria-hidden=true]")
	if sel.Length() == 0 {
		sel = item.Find("span.t-black--light, .t-14.t-normal.t-black--light")
	}
	sel.Each(func(_ int, s *goquery.Selection) {
		text := collapseSpace(s.Text())
		if text == "" || seen[text] {
			return
		}
		seen[text] = true
		texts = append(texts, text)
	})
	return texts
}

// splitCaptions disambiguates date and location among same-shaped caption
// nodes: the first duration-looking caption is the date range, the last
// caption that does not look like a duration is the location.
func splitCaptions(captions []string) (dateRange, location string) {
	for _, c := range captions {
		if dateRange == "" && dateRangeRe.MatchString(c) {
			dateRange = c
		}
	}
	for i := len(captions) - 1; i >= 0; i-- {
		if !dateRangeRe.MatchString(captions[i]) {
			location = captions[i]
			break
		}
	}
	return dateRange, location
}

// splitName splits a display name into first token and remainder.
func splitName(name string) (first, last string) {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}

// splitCompany splits "Acme Corp · Full-time" into company and employment
// type, keeping the first segment as the company.
func splitCompany(raw string) (company, employmentType string) {
	parts := strings.SplitN(raw, "·", 2)
	company = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		employmentType = strings.TrimSpace(parts[1])
	}
	return company, employmentType
}

// splitDegree splits "BSc, Computer Science" into degree and field of study.
func splitDegree(raw string) (degree, field string) {
	parts := strings.SplitN(raw, ",", 2)
	degree = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		field = strings.TrimSpace(parts[1])
	}
	return degree, field
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
