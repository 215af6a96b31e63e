package export

import (
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"

	"wideform/internal/sdmx"
)

// WriteCSV writes the table as CSV: one header record, then the data rows.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

/*
WriteJSON writes the dataset as one JSON document: the dataset id, a
structure header echoing dimensions and attributes in declaration order,
and a series array. Values stay the raw strings the source carried;
consumers decide how to type them.

	{
	  "dataset": "…",
	  "structure": {
	    "id": "schema",
	    "dimensions": [{"id": "MODEL", "concept": "MODEL"}, …],
	    "varying": "YEAR",
	    "attributes": [{"id": "UNIT", "concept": "UNIT"}]
	  },
	  "series": [
	    {
	      "key": {"MODEL": "m", "VARIABLE": "Energy|Supply|Electricity", …},
	      "attributes": {"UNIT": "EJ/yr"},
	      "observations": [{"period": "2005", "value": "12.5"}, …]
	    }
	  ]
	}
*/
func WriteJSON(w io.Writer, ds *sdmx.DataSet) error {
	sd := ds.Structure
	doc := jsonDoc{
		DataSet: ds.ID,
		Structure: jsonStructure{
			ID:      sd.ID,
			Varying: sd.VaryingDimension(),
		},
	}
	for _, d := range sd.Dimensions() {
		doc.Structure.Dimensions = append(doc.Structure.Dimensions,
			jsonComponent{ID: d.ID, Concept: d.Concept})
	}
	for _, a := range sd.Attributes() {
		doc.Structure.Attributes = append(doc.Structure.Attributes,
			jsonComponent{ID: a.ID, Concept: a.Concept})
	}

	doc.Series = make([]jsonSeries, 0, len(ds.Series))
	for _, s := range ds.Series {
		js := jsonSeries{Key: make(map[string]string, len(s.Key.Values))}
		for _, d := range sd.KeyDimensions() {
			v, err := renderedKeyValue(sd, s.Key, d.ID)
			if err != nil {
				return err
			}
			js.Key[d.ID] = v
		}
		if len(s.Key.Attrs) > 0 {
			js.Attributes = make(map[string]string, len(s.Key.Attrs))
			for id, v := range s.Key.Attrs {
				js.Attributes[id] = v
			}
		}
		js.Observations = make([]jsonObs, 0, len(s.Obs))
		for _, o := range s.Obs {
			js.Observations = append(js.Observations, jsonObs{Period: o.Period, Value: o.Value})
		}
		doc.Series = append(doc.Series, js)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

type jsonDoc struct {
	DataSet   string        `json:"dataset"`
	Structure jsonStructure `json:"structure"`
	Series    []jsonSeries  `json:"series"`
}

type jsonStructure struct {
	ID         string          `json:"id"`
	Dimensions []jsonComponent `json:"dimensions"`
	Varying    string          `json:"varying"`
	Attributes []jsonComponent `json:"attributes,omitempty"`
}

type jsonComponent struct {
	ID      string `json:"id"`
	Concept string `json:"concept"`
}

type jsonSeries struct {
	Key          map[string]string `json:"key"`
	Attributes   map[string]string `json:"attributes,omitempty"`
	Observations []jsonObs         `json:"observations"`
}

type jsonObs struct {
	Period string `json:"period"`
	Value  string `json:"value"`
}

/*
WriteXML writes the dataset in a generic-data shape: a DataSet element
holding one Series per accumulated series, each with its SeriesKey values,
its attributes and its observations.

	<DataSet id="…" structure="schema">
	  <Series>
	    <SeriesKey>
	      <Value id="MODEL" value="m"/>
	    </SeriesKey>
	    <Attributes>
	      <Value id="UNIT" value="EJ/yr"/>
	    </Attributes>
	    <Obs period="2005" value="12.5"/>
	  </Series>
	</DataSet>
*/
func WriteXML(w io.Writer, ds *sdmx.DataSet) error {
	sd := ds.Structure
	doc := xmlDataSet{ID: ds.ID, Structure: sd.ID}
	for _, s := range ds.Series {
		xs := xmlSeries{}
		for _, d := range sd.KeyDimensions() {
			v, err := renderedKeyValue(sd, s.Key, d.ID)
			if err != nil {
				return err
			}
			xs.Key = append(xs.Key, xmlValue{ID: d.ID, Value: v})
		}
		for _, a := range sd.Attributes() {
			if v, ok := s.Key.Attr(a.ID); ok {
				xs.Attrs = append(xs.Attrs, xmlValue{ID: a.ID, Value: v})
			}
		}
		for _, o := range s.Obs {
			xs.Obs = append(xs.Obs, xmlObs{Period: o.Period, Value: o.Value})
		}
		doc.Series = append(doc.Series, xs)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

type xmlDataSet struct {
	XMLName   xml.Name    `xml:"DataSet"`
	ID        string      `xml:"id,attr"`
	Structure string      `xml:"structure,attr"`
	Series    []xmlSeries `xml:"Series"`
}

type xmlSeries struct {
	Key   []xmlValue `xml:"SeriesKey>Value"`
	Attrs []xmlValue `xml:"Attributes>Value"`
	Obs   []xmlObs   `xml:"Obs"`
}

type xmlValue struct {
	ID    string `xml:"id,attr"`
	Value string `xml:"value,attr"`
}

type xmlObs struct {
	Period string `xml:"period,attr"`
	Value  string `xml:"value,attr"`
}
