package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/docuscan/taxpipeline/internal/interfaces"
	"github.com/ternarybob/arbor"
)

// bankStatementDocType is the lane-selector used by the static routing
// policy of §4.6: every other document type routes to the tax-document
// provider, this one routes to the bank-statement provider.
const bankStatementDocType = "rekening_koran"

// SmartMapper implements interfaces.StructuredMapper on top of the shared
// ProviderFactory, routing tax-document types to provider A (Claude) and
// the bank-statement type to provider B (Gemini) per §4.6's static policy.
type SmartMapper struct {
	providers *ProviderFactory
	logger    arbor.ILogger
}

// NewSmartMapper creates a Smart Mapper backed by the given provider factory.
func NewSmartMapper(providers *ProviderFactory, logger arbor.ILogger) *SmartMapper {
	return &SmartMapper{providers: providers, logger: logger}
}

// MapStructured implements interfaces.StructuredMapper.
func (m *SmartMapper) MapStructured(ctx context.Context, docType string, ocrText string, templateFields []string) (*interfaces.StructuredMapResult, error) {
	provider := m.laneProvider(docType)

	systemPrompt := buildSystemPrompt(docType, templateFields)

	req := &ContentRequest{
		Messages: []interfaces.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: ocrText},
		},
		DefaultProvider: provider,
		Temperature:     0, // deterministic extraction, not conversation
	}

	resp, err := m.providers.GenerateContent(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("smart mapper: generate content: %w", err)
	}

	record, parseErr := parseJSONRecord(resp.Text)
	if parseErr == nil {
		return &interfaces.StructuredMapResult{Record: record, RawText: resp.Text}, nil
	}

	m.logger.Warn().
		Str("doc_type", docType).
		Str("provider", string(provider)).
		Err(parseErr).
		Msg("smart mapper: first response was not valid JSON, retrying once")

	retryReq := &ContentRequest{
		Messages: []interfaces.Message{
			{Role: "system", Content: systemPrompt + "\n\nYour previous response could not be parsed as JSON. Return ONLY a single JSON object, with no surrounding prose or markdown fences."},
			{Role: "user", Content: ocrText},
		},
		DefaultProvider: provider,
		Temperature:     0,
	}

	retryResp, err := m.providers.GenerateContent(ctx, retryReq)
	if err != nil {
		return nil, fmt.Errorf("smart mapper: retry generate content: %w", err)
	}

	record, parseErr = parseJSONRecord(retryResp.Text)
	if parseErr == nil {
		return &interfaces.StructuredMapResult{Record: record, RawText: retryResp.Text}, nil
	}

	m.logger.Error().
		Str("doc_type", docType).
		Str("provider", string(provider)).
		Err(parseErr).
		Msg("smart mapper: retry response also failed to parse, recording extractor_parse failure")

	return &interfaces.StructuredMapResult{
		Record:     map[string]interface{}{},
		ParseError: true,
		RawText:    retryResp.Text,
	}, nil
}

// laneProvider applies §4.6's static routing policy.
func (m *SmartMapper) laneProvider(docType string) ProviderType {
	if docType == bankStatementDocType {
		return m.providers.BankStmtProvider()
	}
	return m.providers.TaxDocProvider()
}

// buildSystemPrompt assembles the field-hint + JSON-only instruction
// contract described in §4.6's "Prompt contract" paragraph.
func buildSystemPrompt(docType string, templateFields []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You extract structured data from OCR text of an Indonesian %s document.\n", docType)
	b.WriteString("Return a single JSON object with exactly these fields (use null for fields you cannot find):\n")
	for _, f := range templateFields {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	b.WriteString("Respond with JSON only. Do not include any explanation, markdown fences, or surrounding text.")
	return b.String()
}

// parseJSONRecord extracts a JSON object from a model response, tolerating
// markdown code fences some models wrap their output in despite
// instructions not to.
func parseJSONRecord(text string) (map[string]interface{}, error) {
	candidate := strings.TrimSpace(text)
	candidate = strings.TrimPrefix(candidate, "```json")
	candidate = strings.TrimPrefix(candidate, "```")
	candidate = strings.TrimSuffix(candidate, "```")
	candidate = strings.TrimSpace(candidate)

	start := strings.Index(candidate, "{")
	end := strings.LastIndex(candidate, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	candidate = candidate[start : end+1]

	var record map[string]interface{}
	if err := json.Unmarshal([]byte(candidate), &record); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return record, nil
}
