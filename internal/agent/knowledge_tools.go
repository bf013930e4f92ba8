package agent

import (
	"context"
	"fmt"

	"github.com/starford/ansuz/internal/knowledge"
	"github.com/starford/ansuz/internal/scraper"
)

// schema builds a JSON Schema object for a tool's parameters.
func schema(required []string, props map[string]interface{}) map[string]interface{} {
	s := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func strProp(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": desc}
}

func numProp(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "number", "description": desc}
}

// RegisterKnowledgeTools binds every knowledge operation to the registry.
func RegisterKnowledgeTools(r *Registry, svc *knowledge.Service) {
	scoreProps := func(props map[string]interface{}) map[string]interface{} {
		props["confidence"] = numProp("How certain the information is correct, 0.0 to 1.0.")
		props["relevance"] = numProp("How relevant the information is to the organization, 0.0 to 1.0.")
		return props
	}

	r.Register(NewTool(
		"add_url_to_index",
		"Add a URL to the knowledge URL index, or update it if the URL is already indexed. Writes below the review thresholds are deferred for human approval.",
		schema([]string{"url", "title", "confidence", "relevance"}, scoreProps(map[string]interface{}{
			"url":     strProp("The URL to index."),
			"title":   strProp("Human-readable title of the page."),
			"domain":  strProp("Organizational domain the URL belongs to, e.g. engineering."),
			"context": strProp("Why this URL matters to the organization."),
			"summary": strProp("One or two sentence summary of the page."),
			"tags":    strProp("Comma-separated tags."),
		})),
		func(ctx context.Context, args map[string]interface{}) string {
			return svc.AddURL(knowledge.AddURLParams{
				URL:        argString(args, "url"),
				Title:      argString(args, "title"),
				Domain:     argString(args, "domain"),
				Context:    argString(args, "context"),
				Summary:    argString(args, "summary"),
				Tags:       argString(args, "tags"),
				Confidence: argFloat(args, "confidence"),
				Relevance:  argFloat(args, "relevance"),
			}).Render()
		},
	))

	r.Register(NewTool(
		"update_instructions_file",
		"Append to or replace a section of the organizational instructions document. Writes below the review thresholds are deferred for human approval.",
		schema([]string{"section", "content", "confidence", "relevance"}, scoreProps(map[string]interface{}{
			"section": strProp("Exact section heading to update, without the leading ##."),
			"content": strProp("Markdown content to apply."),
			"action":  strProp("append (default) or replace."),
		})),
		func(ctx context.Context, args map[string]interface{}) string {
			return svc.UpdateInstructions(
				argString(args, "section"),
				argString(args, "content"),
				argString(args, "action"),
				argFloat(args, "confidence"),
				argFloat(args, "relevance"),
			).Render()
		},
	))

	r.Register(NewTool(
		"create_note",
		"Create a Markdown note with YAML frontmatter in a topic directory and index it. Writes below the review thresholds are deferred for human approval.",
		schema([]string{"title", "content", "confidence", "relevance"}, scoreProps(map[string]interface{}{
			"title":      strProp("Note title; also used to derive the filename."),
			"content":    strProp("Markdown body of the note."),
			"topic":      strProp("Topic directory; unknown topics fall back to the default."),
			"domain":     strProp("Organizational domain, e.g. engineering."),
			"category":   strProp("Note category; defaults from the topic when empty."),
			"tags":       strProp("Comma-separated tags."),
			"summary":    strProp("One or two sentence summary."),
			"source_url": strProp("Source URL the note derives from, if any."),
		})),
		func(ctx context.Context, args map[string]interface{}) string {
			return svc.CreateNote(knowledge.CreateNoteParams{
				Title:      argString(args, "title"),
				Content:    argString(args, "content"),
				Topic:      argString(args, "topic"),
				Domain:     argString(args, "domain"),
				Category:   argString(args, "category"),
				Tags:       argString(args, "tags"),
				Summary:    argString(args, "summary"),
				SourceURL:  argString(args, "source_url"),
				Confidence: argFloat(args, "confidence"),
				Relevance:  argFloat(args, "relevance"),
			}).Render()
		},
	))

	r.Register(NewTool(
		"get_knowledge_status",
		"Summarize the knowledge stores: instructions sections, URL count, per-topic note counts, and the configured review thresholds.",
		schema(nil, map[string]interface{}{}),
		func(ctx context.Context, args map[string]interface{}) string {
			return svc.Status().Render()
		},
	))

	r.Register(NewTool(
		"get_available_tags",
		"List every tag in the knowledge base ranked by usage, with per-source counts.",
		schema(nil, map[string]interface{}{}),
		func(ctx context.Context, args map[string]interface{}) string {
			return svc.AvailableTags().Render()
		},
	))

	r.Register(NewTool(
		"search_by_tags",
		"Find notes and URLs carrying any of the given tags (OR match, case-insensitive).",
		schema([]string{"tags"}, map[string]interface{}{
			"tags": strProp("Comma-separated tags to search for."),
		}),
		func(ctx context.Context, args map[string]interface{}) string {
			return svc.SearchByTags(argString(args, "tags")).Render()
		},
	))

	r.Register(NewTool(
		"get_instructions_context",
		"Return the full organizational instructions document.",
		schema(nil, map[string]interface{}{}),
		func(ctx context.Context, args map[string]interface{}) string {
			return svc.InstructionsContext().Render()
		},
	))

	r.Register(NewTool(
		"get_notes_index",
		"List every indexed note with its topic, metadata, and summary.",
		schema(nil, map[string]interface{}{}),
		func(ctx context.Context, args map[string]interface{}) string {
			return svc.NotesOverview().Render()
		},
	))

	r.Register(NewTool(
		"read_note",
		"Return the full content of one note by filename.",
		schema([]string{"filename"}, map[string]interface{}{
			"filename": strProp("Note filename, e.g. 20260827-deploy-checklist.md."),
		}),
		func(ctx context.Context, args map[string]interface{}) string {
			return svc.ReadNote(argString(args, "filename")).Render()
		},
	))

	r.Register(NewTool(
		"get_url_index",
		"List every indexed URL with its context, summary, and tags.",
		schema(nil, map[string]interface{}{}),
		func(ctx context.Context, args map[string]interface{}) string {
			return svc.URLOverview().Render()
		},
	))

	r.Register(NewTool(
		"search_knowledge",
		"Substring search across the instructions document and all note files.",
		schema([]string{"query"}, map[string]interface{}{
			"query": strProp("Search terms; any term matching counts as a hit."),
		}),
		func(ctx context.Context, args map[string]interface{}) string {
			return svc.SearchKnowledge(argString(args, "query")).Render()
		},
	))
}

// RegisterScraperTool binds the web fetch tool.
func RegisterScraperTool(r *Registry, s *scraper.Scraper) {
	r.Register(NewTool(
		"fetch_url",
		"Fetch a web page and return its title and readable text content.",
		schema([]string{"url"}, map[string]interface{}{
			"url": strProp("The URL to fetch."),
		}),
		func(ctx context.Context, args map[string]interface{}) string {
			url := argString(args, "url")
			page, err := s.Fetch(ctx, url)
			if err != nil {
				return fmt.Sprintf("Error: fetching %s: %v", url, err)
			}
			return fmt.Sprintf("Title: %s\nURL: %s\n\n%s", page.Title, page.URL, page.Text)
		},
	))
}
