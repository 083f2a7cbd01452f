package parser

import (
	"errors"
	"testing"

	"golang.org/x/net/html"

	"github.com/IshaanNene/listgoat/internal/types"
)

const testHTML = `<!DOCTYPE html>
<html>
<head><title>Tours</title><script>var x = "Ha Long Bay";</script></head>
<body>
  <div class="list">
    <div class="card">
      <h3 class="name">  Ha Long   Bay &amp; Caves </h3>
      <span class="price">5.990.000&nbsp;VND</span>
      <img class="thumb" src="/img/a.jpg" data-src="/img/a-large.jpg">
      <a class="more" href="/tour/ha-long">Details</a>
      <ul class="dates"><li>01/02</li><li></li><li>15/02</li></ul>
    </div>
    <div class="card">
      <h3 class="name">Sapa Trek</h3>
      <img class="thumb" src="/img/b.jpg">
      <a class="more" href="/tour/sapa"></a>
    </div>
  </div>
  <p>Line one<br>
     line   two</p>
</body>
</html>`

func mustParse(t *testing.T, body string) *html.Node {
	t.Helper()
	root, err := Parse(body)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return root
}

func TestParseEmpty(t *testing.T) {
	if _, err := Parse("   "); !errors.Is(err, types.ErrEmptyHTML) {
		t.Errorf("expected ErrEmptyHTML, got %v", err)
	}
}

func TestCompileSyntaxError(t *testing.T) {
	_, err := Compile("//div[@class=")
	var se *types.SelectorSyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("expected SelectorSyntaxError, got %v", err)
	}
	if se.Expr != "//div[@class=" {
		t.Errorf("Expr = %q", se.Expr)
	}
}

func TestExtractScalar(t *testing.T) {
	doc := mustParse(t, testHTML)
	cards := MustQueryAll(doc, "//div[@class='card']")
	if len(cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(cards))
	}

	if got := ExtractScalar(cards[0], ".//h3"); got != "Ha Long Bay & Caves" {
		t.Errorf("name = %q", got)
	}
	if got := ExtractScalar(cards[0], ".//span[@class='price']"); got != "5.990.000 VND" {
		t.Errorf("price = %q", got)
	}
	if got := ExtractScalar(cards[1], ".//span[@class='price']"); got != "" {
		t.Errorf("missing price should be empty, got %q", got)
	}
	if got := ExtractScalar(cards[0], ".//h3[@class="); got != "" {
		t.Errorf("invalid xpath should be empty, got %q", got)
	}
	if got := ExtractScalar(cards[0], "NULL"); got != "" {
		t.Errorf("NULL selector should be empty, got %q", got)
	}
}

func TestExtractAttr(t *testing.T) {
	doc := mustParse(t, testHTML)
	cards := MustQueryAll(doc, "//div[@class='card']")

	if got := ExtractAttr(cards[0], ".//img", "data-src"); got != "/img/a-large.jpg" {
		t.Errorf("data-src = %q", got)
	}
	if got := ExtractAttr(cards[1], ".//img", "data-src"); got != "" {
		t.Errorf("absent attribute should be empty, got %q", got)
	}
	if got := ExtractAttr(cards[0], ".//a", ""); got != "Details" {
		t.Errorf("empty attr should fall back to text, got %q", got)
	}
}

func TestExtractMultiple(t *testing.T) {
	doc := mustParse(t, testHTML)
	cards := MustQueryAll(doc, "//div[@class='card']")

	got := ExtractMultiple(cards[0], ".//ul[@class='dates']/li")
	if len(got) != 2 || got[0] != "01/02" || got[1] != "15/02" {
		t.Errorf("dates = %v", got)
	}
	if got := ExtractMultiple(cards[1], ".//ul/li"); got == nil || len(got) != 0 {
		t.Errorf("no match should be an empty slice, got %#v", got)
	}
}

func TestSampleValue(t *testing.T) {
	doc := mustParse(t, testHTML)
	imgs := MustQueryAll(doc, "//img")
	links := MustQueryAll(doc, "//a")

	if got := SampleValue(imgs[0], types.AttributeSuggestion{ImageAttr: "data-src"}); got != "/img/a-large.jpg" {
		t.Errorf("img with suggestion = %q", got)
	}
	if got := SampleValue(imgs[1], types.AttributeSuggestion{ImageAttr: "data-src"}); got != "/img/b.jpg" {
		t.Errorf("img falls back to src, got %q", got)
	}
	if got := SampleValue(links[0], types.AttributeSuggestion{}); got != "Details" {
		t.Errorf("anchor text = %q", got)
	}
	if got := SampleValue(links[1], types.AttributeSuggestion{}); got != "/tour/sapa" {
		t.Errorf("empty anchor falls back to href, got %q", got)
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  a   b  ", "a b"},
		{"a\n\n   b", "a\nb"},
		{"Tom &amp; Jerry", "Tom & Jerry"},
		{"x  y", "x y"},
		{"\t\r\n", ""},
	}
	for _, tt := range tests {
		if got := CleanText(tt.in); got != tt.want {
			t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFindByText(t *testing.T) {
	doc := mustParse(t, testHTML)

	n := FindByText(doc, "sapa   TREK")
	if n == nil || n.Data != "h3" {
		t.Fatalf("expected h3, got %v", n)
	}
	// Text inside <script> is not a candidate.
	if n := FindByText(doc, "var x"); n != nil {
		t.Errorf("script text should not match, got <%s>", n.Data)
	}
	if n := FindByText(doc, ""); n != nil {
		t.Error("empty hint should match nothing")
	}
}

func TestFindByTextPrefersLongestAmongEquallyDeep(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"longer first", `<div><p id="want">Tour Hạ Long 3 ngày 2 đêm</p><p>Tour Hạ Long</p></div>`},
		{"longer last", `<div><p>Tour Hạ Long</p><p id="want">Tour Hạ Long 3 ngày 2 đêm</p></div>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParse(t, "<html><body>"+tt.body+"</body></html>")
			n := FindByText(doc, "hạ long")
			if n == nil || Attr(n, "id") != "want" {
				t.Fatalf("expected the longer paragraph, got %v", n)
			}
		})
	}
}

func TestClasses(t *testing.T) {
	doc := mustParse(t, `<html><body><div class=" a  b "><span>x</span></div></body></html>`)
	span := MustQueryAll(doc, "//span")[0]
	if c := Classes(span.Parent); len(c) != 2 || c[0] != "a" || c[1] != "b" {
		t.Errorf("Classes = %v", c)
	}
}

func TestExtractMeta(t *testing.T) {
	tests := []struct {
		name string
		body string
		want PageMeta
	}{
		{
			name: "json-ld graph with offers",
			body: `<html><head><script type="application/ld+json">
{"@context":"https://schema.org","@graph":[{"@type":"WebPage"},{"@type":"Product","name":"Tour Đà Lạt 3N2Đ",
"image":[{"url":"https://cdn.vn/dl.jpg"}],"offers":[{"@type":"Offer","price":3290000}]}]}
</script><meta property="og:title" content="Đà Lạt | Site"></head><body></body></html>`,
			want: PageMeta{Name: "Tour Đà Lạt 3N2Đ", Image: "https://cdn.vn/dl.jpg", Price: "3290000"},
		},
		{
			name: "opengraph fills the gaps",
			body: `<html><head><script type="application/ld+json">[{"name":"Phú Quốc"}]</script>
<meta property="og:image" content=" https://cdn.vn/pq.jpg ">
<meta property="product:price:amount" content="7990000"></head><body></body></html>`,
			want: PageMeta{Name: "Phú Quốc", Image: "https://cdn.vn/pq.jpg", Price: "7990000"},
		},
		{
			name: "broken json-ld is ignored",
			body: `<html><head><script type="application/ld+json">{"name":</script>
<meta property="og:title" content="Huế"></head><body></body></html>`,
			want: PageMeta{Name: "Huế"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractMeta(mustParse(t, tt.body)); got != tt.want {
				t.Errorf("ExtractMeta() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
