package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/haasonsaas/agentcore/internal/agenttool"
	"github.com/haasonsaas/agentcore/pkg/agentmsg"
)

// BrowserTool drives a headless Chrome instance through chromedp: navigate,
// wait, click, type, and read back the page's text or a script result. It
// is a single multiplexed tool rather than one per action, since all
// actions share the same chromedp.Context lifecycle per call.
type BrowserTool struct {
	timeout time.Duration
}

// NewBrowserTool constructs the tool with a per-call timeout; each Execute
// call gets its own headless Chrome context and tears it down on return.
func NewBrowserTool(timeout time.Duration) *BrowserTool {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BrowserTool{timeout: timeout}
}

type browserArgs struct {
	URL      string `json:"url"`
	Selector string `json:"selector,omitempty"`
	Text     string `json:"text,omitempty"`
	Script   string `json:"script,omitempty"`
	Action   string `json:"action"` // "navigate", "click", "type", "read_text", "eval"
}

// Name implements agenttool.Tool.
func (t *BrowserTool) Name() string { return "browser" }

// Label implements agenttool.Tool.
func (t *BrowserTool) Label() string { return "Browser" }

// Description implements agenttool.Tool.
func (t *BrowserTool) Description() string {
	return "Drives a headless browser: navigate to a URL, click or type into an element, read page text, or evaluate JavaScript."
}

// Parameters implements agenttool.Tool.
func (t *BrowserTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"action": {"type": "string", "enum": ["navigate", "click", "type", "read_text", "eval"]},
			"url": {"type": "string", "description": "Required for navigate"},
			"selector": {"type": "string", "description": "CSS selector, required for click/type/read_text"},
			"text": {"type": "string", "description": "Text to type, required for type"},
			"script": {"type": "string", "description": "JavaScript to evaluate, required for eval"}
		},
		"required": ["action"]
	}`)
}

// Execute implements agenttool.Tool. onUpdate is unused: a single
// chromedp.Run call does not produce intermediate progress.
func (t *BrowserTool) Execute(ctx context.Context, toolCallID string, args json.RawMessage, onUpdate agenttool.UpdateFunc) (*agenttool.Result, error) {
	var a browserArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, fmt.Errorf("browser: invalid arguments: %w", err)
	}

	runCtx, cancel := chromedp.NewContext(ctx)
	defer cancel()
	runCtx, timeoutCancel := context.WithTimeout(runCtx, t.timeout)
	defer timeoutCancel()

	switch a.Action {
	case "navigate":
		if a.URL == "" {
			return nil, fmt.Errorf("browser: navigate requires url")
		}
		if err := chromedp.Run(runCtx, chromedp.Navigate(a.URL)); err != nil {
			return nil, fmt.Errorf("browser: navigate: %w", err)
		}
		return textResult(fmt.Sprintf("navigated to %s", a.URL)), nil

	case "click":
		if a.Selector == "" {
			return nil, fmt.Errorf("browser: click requires selector")
		}
		if err := chromedp.Run(runCtx,
			chromedp.WaitVisible(a.Selector, chromedp.ByQuery),
			chromedp.Click(a.Selector, chromedp.ByQuery),
		); err != nil {
			return nil, fmt.Errorf("browser: click %s: %w", a.Selector, err)
		}
		return textResult(fmt.Sprintf("clicked %s", a.Selector)), nil

	case "type":
		if a.Selector == "" || a.Text == "" {
			return nil, fmt.Errorf("browser: type requires selector and text")
		}
		if err := chromedp.Run(runCtx,
			chromedp.WaitVisible(a.Selector, chromedp.ByQuery),
			chromedp.SendKeys(a.Selector, a.Text, chromedp.ByQuery),
		); err != nil {
			return nil, fmt.Errorf("browser: type into %s: %w", a.Selector, err)
		}
		return textResult(fmt.Sprintf("typed into %s", a.Selector)), nil

	case "read_text":
		if a.Selector == "" {
			return nil, fmt.Errorf("browser: read_text requires selector")
		}
		var text string
		if err := chromedp.Run(runCtx,
			chromedp.WaitVisible(a.Selector, chromedp.ByQuery),
			chromedp.Text(a.Selector, &text, chromedp.ByQuery),
		); err != nil {
			return nil, fmt.Errorf("browser: read_text %s: %w", a.Selector, err)
		}
		return textResult(text), nil

	case "eval":
		if a.Script == "" {
			return nil, fmt.Errorf("browser: eval requires script")
		}
		var result any
		if err := chromedp.Run(runCtx, chromedp.Evaluate(a.Script, &result)); err != nil {
			return nil, fmt.Errorf("browser: eval: %w", err)
		}
		resultJSON, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("browser: marshal eval result: %w", err)
		}
		return &agenttool.Result{
			Content: []agentmsg.Block{agentmsg.TextBlock(string(resultJSON))},
			Details: result,
		}, nil

	default:
		return nil, fmt.Errorf("browser: unknown action %q", a.Action)
	}
}

func textResult(text string) *agenttool.Result {
	return &agenttool.Result{Content: []agentmsg.Block{agentmsg.TextBlock(text)}}
}
