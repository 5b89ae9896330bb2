package mcpserver

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Setup creates the MCP server and registers the folder tools.
func Setup(h *Handlers, version string) *mcp.Server {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "shirabe",
			Version: version,
		},
		&mcp.ServerOptions{
			Instructions: `This server answers questions about the contents of a local folder using semantic search.

Workflow:
- Call folder_index once with the folder path the user wants to ask about
- Call folder_search with a natural language query; results are passages ranked by meaning, not keywords
- Cite the file path and character range of each passage you use
- folder_status shows what is indexed; folder_clear drops the index`,
		},
	)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "folder_index",
		Description: "Index every text file in a folder for semantic search. Replaces any previous index. Large folders take a while because every chunk is embedded.",
	}, h.HandleIndex)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "folder_search",
		Description: "Find the passages of the indexed folder most similar in meaning to the query. Fails if no folder is indexed.",
	}, h.HandleSearch)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "folder_status",
		Description: "Show the indexed folder, chunk and file counts, embedding model, and indexing time.",
	}, h.HandleStatus)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "folder_clear",
		Description: "Drop the current index.",
	}, h.HandleClear)

	return mcpServer
}
