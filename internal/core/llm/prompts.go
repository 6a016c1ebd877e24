package llm

import (
	"fmt"
	"os"
	"strings"
)

// URLPlaceholder is substituted with the URL under evaluation.
const URLPlaceholder = "{url}"

// Prompt styles.
const (
	PromptStyleReasoning = "reasoning"
	PromptStyleNumeric   = "numeric"
)

const reasoningSystemPrompt = "You are a URL security expert. " +
	"Evaluate the probability that the given URL is malicious or benign. " +
	"Malicious includes (phishing, malware, defacement, or other harmful). " +
	`Output ONLY a single JSON object with one key 'score' whose value is a number in [0,1]. ` +
	"No text before or after the JSON."

const reasoningPromptTemplate = `You are a URL security expert. Evaluate the probability that the given URL is malicious or benign.

Malicious URLs often exhibit abnormal lexical or structural patterns, such as high-entropy or brand-mismatched domains, risky TLDs, suspicious keywords, executable or archive downloads, cloud-storage abuse, redirects/shorteners, and compromised CMS traces, while lacking the consistent branding, clean semantics, and trusted hosting typical of benign sites.

Benign URLs are known reputable sites with clean descriptive paths. Normal encoding alone is neutral.

Examples:
rapreviews.com/archive/2010_04_cityofdirt.html (benign)
Signal: Established review site; semantic and readable path; no suspicious parameters or brand terms.

http://viva-sport.com/index.php?option=com_virtuemart&page=shop.browse&category_id=19&Itemid=54 (malicious)
Signal: HTTP (no TLS); Joomla/VirtueMart CMS stack with long query string; typical signs of defacement or compromise.

http://fr57f6yg.gb.net/boa/login.php?... (malicious)
Signal: Subdomain appears high-entropy/random; path contains "boa/login.php" (brand keyword mismatch, brand impersonation); very long session parameters.

Show me your thinking process, but only end your response with one-line JSON exactly like: {"score": <float>} (no extra text).

URL: {url}
Return:`

const numericPromptTemplate = `Evaluate the probability of this URL being a phishing site.
Respond only with a numeric value strictly between 0 (definitely not phishing) and 1 (definitely phishing, malware, defacement or others).
Even if uncertain, you must still choose the number closest to your judgment and do NOT output anything else.
URL: {url}`

// Prompt is the instruction pair sent to the oracle. System may be empty.
type Prompt struct {
	System   string
	Template string
}

// Render substitutes the URL into the template.
func (p Prompt) Render(url string) string {
	return strings.ReplaceAll(p.Template, URLPlaceholder, url)
}

// DefaultPrompt returns the built-in prompt for a style. Unknown styles fall
// back to the reasoning prompt.
func DefaultPrompt(style string) Prompt {
	if style == PromptStyleNumeric {
		return Prompt{Template: numericPromptTemplate}
	}

	return Prompt{System: reasoningSystemPrompt, Template: reasoningPromptTemplate}
}

// LoadPrompt returns the built-in prompt for style, with its template replaced
// by the contents of file when file is set.
func LoadPrompt(style, file string) (Prompt, error) {
	prompt := DefaultPrompt(style)
	if file == "" {
		return prompt, nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return Prompt{}, fmt.Errorf("reading prompt file: %w", err)
	}

	template := strings.TrimSpace(string(data))
	if !strings.Contains(template, URLPlaceholder) {
		return Prompt{}, fmt.Errorf("%w: prompt file %s has no %s placeholder", errPromptTemplate, file, URLPlaceholder)
	}

	prompt.Template = template

	return prompt, nil
}
