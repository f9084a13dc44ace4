package report

import "strings"

// Models for the XML Export v2 document. Only the attributes and blocks the
// summaries need are mapped; the rest of the document is skipped by the
// decoder.

type xmlReport struct {
	Nodes []xmlNode `xml:"nodes>node"`
	Vulns []xmlVuln `xml:"VulnerabilityDefinitions>vulnerability"`
}

type xmlNode struct {
	Address   string   `xml:"address,attr"`
	RiskScore float64  `xml:"risk-score,attr"`
	OS        []xmlOS  `xml:"fingerprints>os"`
	Names     []string `xml:"names>name"`
}

type xmlOS struct {
	Certainty string `xml:"certainty,attr"`
	Family    string `xml:"family,attr"`
	Product   string `xml:"product,attr"`
	Vendor    string `xml:"vendor,attr"`
}

type xmlVuln struct {
	ID          string       `xml:"id,attr"`
	Title       string       `xml:"title,attr"`
	Severity    string       `xml:"severity,attr"`
	Description xmlContainer `xml:"description>ContainerBlockElement"`
	Solution    xmlContainer `xml:"solution>ContainerBlockElement"`
}

// xmlContainer is a ContainerBlockElement: free text in paragraphs, possibly
// with nested paragraphs, hyperlinks, and bullet lists.
type xmlContainer struct {
	Paragraphs []xmlParagraph `xml:"Paragraph"`
	Lists      []xmlList      `xml:"UnorderedList"`
}

type xmlList struct {
	Items []xmlListItem `xml:"ListItem"`
}

type xmlListItem struct {
	Text       string         `xml:",chardata"`
	Paragraphs []xmlParagraph `xml:"Paragraph"`
}

type xmlParagraph struct {
	Text     string         `xml:",chardata"`
	Links    []xmlLink      `xml:"URLLink"`
	Children []xmlParagraph `xml:"Paragraph"`
}

type xmlLink struct {
	URL  string `xml:"LinkURL,attr"`
	Text string `xml:",chardata"`
}

// nodeIndex maps asset IP address to its node entry.
func (r *xmlReport) nodeIndex() map[string]*xmlNode {
	index := make(map[string]*xmlNode, len(r.Nodes))
	for i := range r.Nodes {
		index[r.Nodes[i].Address] = &r.Nodes[i]
	}
	return index
}

// solutionIndex maps vulnerability ID to its flattened solution text.
func (r *xmlReport) solutionIndex() map[string]string {
	index := make(map[string]string, len(r.Vulns))
	for _, v := range r.Vulns {
		index[v.ID] = v.Solution.text()
	}
	return index
}

func (n *xmlNode) osFamily() string {
	if len(n.OS) == 0 {
		return ""
	}
	return n.OS[0].Family
}

func (n *xmlNode) osProduct() string {
	if len(n.OS) == 0 {
		return ""
	}
	return n.OS[0].Product
}

func (n *xmlNode) hostname() string {
	if len(n.Names) == 0 {
		return ""
	}
	return strings.TrimSpace(n.Names[0])
}

// text flattens a container into a single line. Nested paragraphs are joined
// with " => " so the service prefix in solutions stays separable; link URLs
// are kept since the rendered text often omits them.
func (c xmlContainer) text() string {
	var parts []string
	for _, p := range c.Paragraphs {
		if s := p.text(); s != "" {
			parts = append(parts, s)
		}
	}
	for _, list := range c.Lists {
		for _, item := range list.Items {
			if s := item.text(); s != "" {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, " => ")
}

// text flattens one paragraph. Own text and link URLs join with spaces;
// nested paragraphs join with " => " so a service-name prefix paragraph
// stays separable from the instruction that follows it.
func (p xmlParagraph) text() string {
	own := make([]string, 0, 1+len(p.Links))
	if s := collapseSpace(p.Text); s != "" {
		own = append(own, s)
	}
	for _, link := range p.Links {
		if s := collapseSpace(link.Text); s != "" && s != link.URL {
			own = append(own, s)
		}
		if link.URL != "" {
			own = append(own, link.URL)
		}
	}

	segments := make([]string, 0, 1+len(p.Children))
	if joined := strings.Join(own, " "); joined != "" {
		segments = append(segments, joined)
	}
	for _, child := range p.Children {
		if s := child.text(); s != "" {
			segments = append(segments, s)
		}
	}
	return strings.Join(segments, " => ")
}

func (i xmlListItem) text() string {
	if s := collapseSpace(i.Text); s != "" {
		return s
	}
	parts := make([]string, 0, len(i.Paragraphs))
	for _, p := range i.Paragraphs {
		if s := p.text(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
