package sierra

import (
	"bytes"
	"encoding/json"

	"suggestbot/internal/catalog"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type codeValue struct {
	Code  string `json:"code"`
	Value string `json:"value"`
	Name  string `json:"name"`
}

type bibsResponse struct {
	Total   int        `json:"total"`
	Start   int        `json:"start"`
	Entries []bibEntry `json:"entries"`
}

type bibEntry struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Author       string     `json:"author"`
	ISBN         stringList `json:"isbn"`
	Publisher    string     `json:"publisher"`
	PublishYear  int        `json:"publishYear"`
	MaterialType codeValue  `json:"materialType"`
	Language     codeValue  `json:"language"`
}

func (b bibEntry) toBib() catalog.Bib {
	return catalog.Bib{
		ID:           b.ID,
		Title:        b.Title,
		Author:       b.Author,
		ISBN:         []string(b.ISBN),
		Publisher:    b.Publisher,
		PublishYear:  b.PublishYear,
		MaterialType: catalog.CodeValue{Code: b.MaterialType.Code, Value: b.MaterialType.Value},
		Language:     catalog.CodeValue{Code: b.Language.Code, Value: b.Language.Name},
	}
}

type itemsResponse struct {
	Total   int         `json:"total"`
	Start   int         `json:"start"`
	Entries []itemEntry `json:"entries"`
}

type itemEntry struct {
	ID         string    `json:"id"`
	BibIDs     []string  `json:"bibIds"`
	Location   codeValue `json:"location"`
	Status     status    `json:"status"`
	CallNumber string    `json:"callNumber"`
}

type status struct {
	Code    string `json:"code"`
	Display string `json:"display"`
}

func (i itemEntry) toItem() catalog.Item {
	return catalog.Item{
		ID:            i.ID,
		BibIDs:        i.BibIDs,
		LocationName:  i.Location.Name,
		StatusCode:    i.Status.Code,
		StatusDisplay: i.Status.Display,
		CallNumber:    i.CallNumber,
	}
}

// stringList accepts either a JSON string or an array of strings.
type stringList []string

func (s *stringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}
	if data[0] == '"' {
		var single string
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		if single == "" {
			*s = nil
		} else {
			*s = stringList{single}
		}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*s = list
	return nil
}
