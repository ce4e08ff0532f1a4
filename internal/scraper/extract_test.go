package scraper

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const profileFixture = `<!DOCTYPE html>
<html><head><title>Jane Doe | LinkedIn</title><style>body{color:red}</style></head>
<body>
<main>
  <section class="artdeco-card">
    <div class="pv-text-details__left-panel">
      <h1>Jane Doe</h1>
      <div class="text-body-medium">Engineering leader building resilient systems</div>
      <span class="text-body-small t-black--light">Berlin, Germany</span>
      <a href="https://janedoe.dev">janedoe.dev</a>
      <a href="#top">back to top</a>
    </div>
  </section>
  <section>
    <div><h2>About</h2></div>
    <div class="inline-show-more-text"><span aria-hidden="true">Fifteen years of shipping infrastructure.</span></div>
  </section>
  <section>
    <div><h2>Experience</h2></div>
    <ul>
      <li class="artdeco-list__item">
        <span class="t-bold"><span aria-hidden="true">Senior Engineer</span></span>
        <span class="t-14 t-normal"><span aria-hidden="true">Acme Corp · Full-time</span></span>
        <span class="t-14 t-normal t-black--light"><span aria-hidden="true">Jan 2020 - Present · 3 yrs</span></span>
        <span class="t-14 t-normal t-black--light"><span aria-hidden="true">Berlin, Germany</span></span>
        <div class="inline-show-more-text"><span aria-hidden="true">Leads the platform team.</span></div>
        <ul>
          <li class="artdeco-list__item">
            <span class="t-bold"><span aria-hidden="true">Team Lead</span></span>
          </li>
        </ul>
      </li>
      <li class="artdeco-list__item">
        <span class="t-bold"><span aria-hidden="true">Engineer</span></span>
        <span class="t-14 t-normal"><span aria-hidden="true">Widget GmbH</span></span>
        <span class="t-14 t-normal t-black--light"><span aria-hidden="true">2017 - 2020</span></span>
      </li>
      <li class="artdeco-list__item">
        <span class="t-14 t-normal t-black--light"><span aria-hidden="true">decorative row</span></span>
      </li>
    </ul>
  </section>
  <section>
    <div><h2>Education</h2></div>
    <ul>
      <li class="artdeco-list__item">
        <span class="t-bold"><span aria-hidden="true">Technical University of Berlin</span></span>
        <span class="t-14 t-normal"><span aria-hidden="true">BSc, Computer Science</span></span>
        <span class="t-14 t-normal t-black--light"><span aria-hidden="true">2013 - 2017</span></span>
      </li>
    </ul>
  </section>
  <section>
    <div><h2>Projects</h2></div>
    <ul>
      <li class="artdeco-list__item">
        <span class="t-bold"><span aria-hidden="true">liimport</span></span>
        <span class="t-14 t-normal t-black--light"><span aria-hidden="true">2023</span></span>
        <div class="inline-show-more-text"><span aria-hidden="true">Profile import tooling.</span></div>
        <a href="https://github.com/janedoe/liimport">repo</a>
      </li>
    </ul>
  </section>
  <section>
    <div><h2>Skills</h2></div>
    <ul>
      <li class="artdeco-list__item"><span class="t-bold"><span aria-hidden="true">Go</span></span></li>
      <li class="artdeco-list__item"><span class="t-bold"><span aria-hidden="true">Distributed Systems</span></span></li>
      <li class="artdeco-list__item"><span class="t-bold"><span aria-hidden="true">Go</span></span></li>
    </ul>
  </section>
</main>
</body></html>`

func parseFixture(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestExtractTopCard(t *testing.T) {
	p := Extract(parseFixture(t, profileFixture))

	assert.Equal(t, "Jane", p.FirstName)
	assert.Equal(t, "Doe", p.LastName)
	assert.Equal(t, "Engineering leader building resilient systems", p.Headline)
	assert.Equal(t, "Berlin, Germany", p.Location)
	assert.Equal(t, "Fifteen years of shipping infrastructure.", p.About)
	assert.Equal(t, []string{"https://janedoe.dev"}, p.ContactLinks)
}

func TestExtractExperience(t *testing.T) {
	p := Extract(parseFixture(t, profileFixture))

	require.Len(t, p.WorkExperience, 2)

	first := p.WorkExperience[0]
	assert.Equal(t, "Senior Engineer", first.Position)
	assert.Equal(t, "Acme Corp", first.Company)
	assert.Equal(t, "Full-time", first.EmploymentType)
	assert.Equal(t, "Jan 2020 - Present · 3 yrs", first.DateRange)
	assert.Equal(t, "Berlin, Germany", first.Location)
	assert.Equal(t, "Leads the platform team.", first.Description)

	second := p.WorkExperience[1]
	assert.Equal(t, "Engineer", second.Position)
	assert.Equal(t, "Widget GmbH", second.Company)
	assert.Equal(t, "2017 - 2020", second.DateRange)
	assert.Empty(t, second.Location)
}

func TestExtractNeverDoubleCountsNestedItems(t *testing.T) {
	p := Extract(parseFixture(t, profileFixture))

	// "Team Lead" is a sub-entry of the first item and must not appear as a
	// top-level entry.
	for _, exp := range p.WorkExperience {
		assert.NotEqual(t, "Team Lead", exp.Position)
	}
}

func TestExtractEducation(t *testing.T) {
	p := Extract(parseFixture(t, profileFixture))

	require.Len(t, p.Education, 1)
	edu := p.Education[0]
	assert.Equal(t, "Technical University of Berlin", edu.School)
	assert.Equal(t, "BSc", edu.Degree)
	assert.Equal(t, "Computer Science", edu.Field)
	assert.Equal(t, "2013 - 2017", edu.DateRange)
}

func TestExtractProjectsAndSkills(t *testing.T) {
	p := Extract(parseFixture(t, profileFixture))

	require.Len(t, p.Projects, 1)
	assert.Equal(t, "liimport", p.Projects[0].Name)
	assert.Equal(t, "2023", p.Projects[0].DateRange)
	assert.Equal(t, "https://github.com/janedoe/liimport", p.Projects[0].URL)

	assert.Equal(t, []string{"Go", "Distributed Systems"}, p.Skills)
}

func TestExtractRawTextCapturesVisibleContent(t *testing.T) {
	p := Extract(parseFixture(t, profileFixture))

	assert.Contains(t, p.RawText, "Jane Doe")
	assert.Contains(t, p.RawText, "Senior Engineer")
	assert.NotContains(t, p.RawText, "color:red")
}

func TestExtractRawTextIsBounded(t *testing.T) {
	huge := "<html><body><main><p>" +
		strings.Repeat("lorem ipsum dolor ", 2000) +
		"</p></main></body></html>"
	p := Extract(parseFixture(t, huge))

	assert.LessOrEqual(t, len([]rune(p.RawText)), MaxRawText)
}

func TestExtractEmptyDocumentKeepsListsPresent(t *testing.T) {
	p := Extract(parseFixture(t, "<html><body></body></html>"))

	assert.NotNil(t, p.ContactLinks)
	assert.NotNil(t, p.WorkExperience)
	assert.NotNil(t, p.Education)
	assert.NotNil(t, p.Projects)
	assert.NotNil(t, p.Skills)
	assert.Empty(t, p.WorkExperience)
	assert.Empty(t, p.FirstName)
	assert.Equal(t, Source, p.Source)
}

func TestExtractToleratesBrokenSelectorChains(t *testing.T) {
	// A chain where earlier selectors match nothing still resolves through
	// later fallbacks.
	doc := parseFixture(t, `<html><body><h1>Ada Lovelace King</h1></body></html>`)
	p := Extract(doc)

	assert.Equal(t, "Ada", p.FirstName)
	assert.Equal(t, "Lovelace King", p.LastName)
}

func TestSplitCaptions(t *testing.T) {
	date, loc := splitCaptions([]string{
		"Jan 2020 - Present · 3 yrs",
		"Berlin, Germany",
		"Remote",
	})
	assert.Equal(t, "Jan 2020 - Present · 3 yrs", date)
	assert.Equal(t, "Remote", loc)

	date, loc = splitCaptions(nil)
	assert.Empty(t, date)
	assert.Empty(t, loc)
}

func TestSplitCompany(t *testing.T) {
	company, kind := splitCompany("Acme Corp · Full-time")
	assert.Equal(t, "Acme Corp", company)
	assert.Equal(t, "Full-time", kind)

	company, kind = splitCompany("Solo Consulting")
	assert.Equal(t, "Solo Consulting", company)
	assert.Empty(t, kind)
}

func TestSplitName(t *testing.T) {
	first, last := splitName("Jane Doe")
	assert.Equal(t, "Jane", first)
	assert.Equal(t, "Doe", last)

	first, last = splitName("Cher")
	assert.Equal(t, "Cher", first)
	assert.Empty(t, last)

	first, last = splitName("")
	assert.Empty(t, first)
	assert.Empty(t, last)
}
