package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ldi/tally/internal/service"
	"github.com/ldi/tally/pkg/models"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer creates a new MCP server. Every tool is a thin wrapper over the
// task service; no business logic lives here.
func NewServer(svc *service.TaskService) *server.MCPServer {
	s := server.NewMCPServer("Tally", "0.1.0")

	s.AddTool(mcp.NewTool("add_task",
		mcp.WithDescription("Add a task. Name, start date and due date are required; the task is journaled and indexed for similarity search."),
		mcp.WithString("name", mcp.Description("Task name"), mcp.Required()),
		mcp.WithString("description", mcp.Description("Task description")),
		mcp.WithString("start_date", mcp.Description("Start date (YYYY-MM-DD)"), mcp.Required()),
		mcp.WithString("due_date", mcp.Description("Due date (YYYY-MM-DD)"), mcp.Required()),
		mcp.WithString("time_spent", mcp.Description("Time spent (HH:MM)")),
		mcp.WithString("functional_area", mcp.Description("Functional area")),
		mcp.WithString("assignment", mcp.Description("Assignment")),
		mcp.WithString("task_type", mcp.Description("Task type")),
		mcp.WithBoolean("completed", mcp.Description("Whether the task is already completed")),
	), addTaskHandler(svc))

	s.AddTool(mcp.NewTool("delete_task",
		mcp.WithDescription("Delete a task by id. Deleting an unknown id is a no-op; version history is retained."),
		mcp.WithString("id", mcp.Description("Task id"), mcp.Required()),
	), deleteTaskHandler(svc))

	s.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List all live tasks in insertion order."),
	), listTasksHandler(svc))

	s.AddTool(mcp.NewTool("search_tasks",
		mcp.WithDescription("Find tasks most similar to a free-text query."),
		mcp.WithString("query", mcp.Description("Query text"), mcp.Required()),
		mcp.WithNumber("k", mcp.Description("Maximum number of results (default 5)")),
	), searchTasksHandler(svc))

	s.AddTool(mcp.NewTool("sync_tasks",
		mcp.WithDescription("Resolve which day's task set to display: today's, or the most recent earlier day with data."),
	), syncTasksHandler(svc))

	s.AddTool(mcp.NewTool("task_history",
		mcp.WithDescription("Get the full version history for a task, oldest first."),
		mcp.WithString("id", mcp.Description("Task id"), mcp.Required()),
	), taskHistoryHandler(svc))

	s.AddTool(mcp.NewTool("run_automation",
		mcp.WithDescription("Render the daily report and post it to the configured webhook."),
	), runAutomationHandler(svc))

	return s
}

// Serve starts the MCP server on stdio.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func addTaskHandler(svc *service.TaskService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		status := models.TaskStatusPending
		if mcp.ParseBoolean(request, "completed", false) {
			status = models.TaskStatusCompleted
		}

		t := &models.Task{
			Name:           mcp.ParseString(request, "name", ""),
			Description:    mcp.ParseString(request, "description", ""),
			StartDate:      mcp.ParseString(request, "start_date", ""),
			DueDate:        mcp.ParseString(request, "due_date", ""),
			TimeSpent:      mcp.ParseString(request, "time_spent", ""),
			FunctionalArea: mcp.ParseString(request, "functional_area", ""),
			Assignment:     mcp.ParseString(request, "assignment", ""),
			TaskType:       mcp.ParseString(request, "task_type", ""),
			Status:         status,
		}

		id, err := svc.AddTask(ctx, t)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Task added with id %s", id)), nil
	}
}

func deleteTaskHandler(svc *service.TaskService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "id", "")

		if err := svc.DeleteTask(ctx, id); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("Task deleted (history retained)"), nil
	}
}

func listTasksHandler(svc *service.TaskService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tasks, err := svc.ListTasks(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		data, err := json.Marshal(map[string]any{"tasks": tasks})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func searchTasksHandler(svc *service.TaskService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := mcp.ParseString(request, "query", "")
		k := mcp.ParseInt(request, "k", 5)

		results, err := svc.SearchSimilar(ctx, query, k)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		data, err := json.Marshal(map[string]any{"results": results})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func syncTasksHandler(svc *service.TaskService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := svc.Sync(ctx, time.Now())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if result.Date.IsZero() {
			return mcp.NewToolResultText("No tasks found in the database."), nil
		}

		data, err := json.Marshal(map[string]any{
			"date":     result.Date.Format(models.DateLayout),
			"fallback": result.Fallback,
			"tasks":    result.Rows,
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if result.Fallback {
			return mcp.NewToolResultText(fmt.Sprintf(
				"No tasks found for today. Displaying tasks from %s.\n%s",
				result.Date.Format(models.DateLayout), data,
			)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func taskHistoryHandler(svc *service.TaskService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "id", "")

		versions, err := svc.History(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if len(versions) == 0 {
			return mcp.NewToolResultError(fmt.Sprintf("No history found for task %s", id)), nil
		}

		data, err := json.Marshal(map[string]any{"versions": versions})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func runAutomationHandler(svc *service.TaskService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := svc.Automate(ctx); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("Report dispatched successfully"), nil
	}
}
