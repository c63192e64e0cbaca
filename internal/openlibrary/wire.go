package openlibrary

import "encoding/json"

type keyRef struct {
	Key string
}

// UnmarshalJSON accepts {"key": "..."} or a bare string.
func (k *keyRef) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &k.Key)
	}
	var obj struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	k.Key = obj.Key
	return nil
}

type editionPayload struct {
	Key           string   `json:"key"`
	Title         string   `json:"title"`
	Authors       []keyRef `json:"authors"`
	Publishers    []string `json:"publishers"`
	PublishDate   string   `json:"publish_date"`
	ISBN10        []string `json:"isbn_10"`
	ISBN13        []string `json:"isbn_13"`
	NumberOfPages int      `json:"number_of_pages"`
	Subjects      []string `json:"subjects"`
	Covers        []int    `json:"covers"`
	Works         []keyRef `json:"works"`
}

func (p editionPayload) toEdition() *Edition {
	title := p.Title
	if title == "" {
		title = "Unknown Title"
	}
	edition := &Edition{
		Key:           p.Key,
		Title:         title,
		Publishers:    p.Publishers,
		PublishDate:   p.PublishDate,
		ISBN10:        p.ISBN10,
		ISBN13:        p.ISBN13,
		NumberOfPages: p.NumberOfPages,
		Subjects:      p.Subjects,
		Covers:        p.Covers,
	}
	for _, author := range p.Authors {
		edition.Authors = append(edition.Authors, Author{Key: author.Key})
	}
	for _, work := range p.Works {
		if work.Key != "" {
			edition.Works = append(edition.Works, work.Key)
		}
	}
	return edition
}

// textValue accepts a plain string or {"type": ..., "value": "..."}.
type textValue string

func (t *textValue) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = textValue(s)
		return nil
	}
	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*t = textValue(obj.Value)
	return nil
}

type workPayload struct {
	Key              string    `json:"key"`
	Title            string    `json:"title"`
	Description      textValue `json:"description"`
	Subjects         []string  `json:"subjects"`
	FirstPublishDate string    `json:"first_publish_date"`
	Covers           []int     `json:"covers"`
}

func (p workPayload) toWork() *Work {
	return &Work{
		Key:              p.Key,
		Title:            p.Title,
		Description:      string(p.Description),
		Subjects:         p.Subjects,
		FirstPublishDate: p.FirstPublishDate,
		Covers:           p.Covers,
	}
}

type searchPayload struct {
	NumFound int         `json:"numFound"`
	Docs     []searchDoc `json:"docs"`
}

type searchDoc struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	AuthorName       []string `json:"author_name"`
	FirstPublishYear int      `json:"first_publish_year"`
	ISBN             []string `json:"isbn"`
	EditionCount     int      `json:"edition_count"`
}

func (d searchDoc) toResult() SearchResult {
	title := d.Title
	if title == "" {
		title = "Unknown"
	}
	isbns := d.ISBN
	if len(isbns) > maxISBNsPerResult {
		isbns = isbns[:maxISBNsPerResult]
	}
	return SearchResult{
		Key:              d.Key,
		Title:            title,
		AuthorName:       d.AuthorName,
		FirstPublishYear: d.FirstPublishYear,
		ISBN:             isbns,
		EditionCount:     d.EditionCount,
	}
}
