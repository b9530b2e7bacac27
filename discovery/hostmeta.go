// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"bytes"
	"embed"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// HostMetaPath is the well-known location of host-meta (RFC 6415).
const HostMetaPath = "/.well-known/host-meta"

// Media types of the two host-meta representations.
const (
	MediaTypeXRD = "application/xrd+xml"
	MediaTypeJRD = "application/json"
)

//go:embed data/jrd.schema.json
var embeddedSchemaFS embed.FS

// xrdDocument is the subset of XRD 1.0 used by host-meta.
type xrdDocument struct {
	XMLName xml.Name  `xml:"XRD"`
	Subject string    `xml:"Subject"`
	Links   []xrdLink `xml:"Link"`
}

type xrdLink struct {
	Rel      string `xml:"rel,attr"`
	Type     string `xml:"type,attr"`
	Href     string `xml:"href,attr"`
	Template string `xml:"template,attr"`
}

// jrdDocument is the JSON form of host-meta (RFC 6415 Appendix A).
type jrdDocument struct {
	Subject string    `json:"subject,omitempty"`
	Links   []jrdLink `json:"links"`
}

type jrdLink struct {
	Rel      string `json:"rel"`
	Type     string `json:"type,omitempty"`
	Href     string `json:"href,omitempty"`
	Template string `json:"template,omitempty"`
}

// HostMeta parses a host-meta document. JSON is recognised by content type
// or, failing that, by a leading '{'.
func (DefaultParser) HostMeta(contentType string, body []byte, base *url.URL) ([]Link, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty host-meta document")
	}
	if strings.Contains(strings.ToLower(contentType), "json") || trimmed[0] == '{' {
		return parseJRD(trimmed, base)
	}
	return parseXRD(trimmed, base)
}

func parseXRD(body []byte, base *url.URL) ([]Link, error) {
	var doc xrdDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("invalid XRD: %w", err)
	}
	links := make([]Link, 0, len(doc.Links))
	for _, l := range doc.Links {
		links = append(links, hostMetaLink(l.Rel, l.Type, l.Href, l.Template, base))
	}
	return links, nil
}

func parseJRD(body []byte, base *url.URL) ([]Link, error) {
	if err := validateJRD(body); err != nil {
		return nil, err
	}
	var doc jrdDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("invalid JRD: %w", err)
	}
	links := make([]Link, 0, len(doc.Links))
	for _, l := range doc.Links {
		links = append(links, hostMetaLink(l.Rel, l.Type, l.Href, l.Template, base))
	}
	return links, nil
}

func hostMetaLink(rel, typ, href, template string, base *url.URL) Link {
	return Link{
		Rel:      splitRel(rel),
		Type:     typ,
		Href:     resolve(base, href),
		Template: strings.TrimSpace(template),
	}
}

// validateJRD checks body against the embedded JRD schema.
func validateJRD(body []byte) error {
	schemaData, err := embeddedSchemaFS.ReadFile("data/jrd.schema.json")
	if err != nil {
		return fmt.Errorf("failed to read embedded schema: %w", err)
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaData),
		gojsonschema.NewBytesLoader(body),
	)
	if err != nil {
		return fmt.Errorf("invalid JRD: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return fmt.Errorf("JRD schema validation failed: %s", strings.Join(msgs, "; "))
}
