package analyst

import (
	"fmt"
	"strings"
)

// apologyAnswer is returned without a model call when no step produced data.
const apologyAnswer = "Unfortunately, no data could be collected to answer your question. Please try rephrasing it, or check the server logs for details."

const plannerPromptTemplate = `You are an expert data analyst project manager. Your task is to break down a user's question into logical, data-driven steps that can be answered EXCLUSIVELY using the database schema provided below.

USER QUESTION: "%s"

DATABASE SCHEMA:
---
%s
---

RULES:
- MULTI-REQUEST CHECK: If the question contains multiple independent requests (e.g. 'What is X and who is Y?'), create a separate plan step for EACH request. Do not miss any part of the query.
- SINGLE STEP RULE: If the question can be answered completely with a single SQL query (e.g. 'top 5 users by message count', 'total number of sessions'), the plan MUST consist of ONLY ONE step. Do not break down simple queries.
- TIME FILTER RULE: Do NOT add a date filter unless the user explicitly specifies a time range such as "last week" or "this month".
- For broad requests like "general summary", create distinct steps, each answerable by a single, clear SQL query.
- Each step must be a concrete and clear SQL query request.
- You can use a maximum of %d steps.

Provide your answer in the following JSON format:
{
  "plan": [
    "Step 1 description",
    "Step 2 description"
  ]
}`

const workerSystemPrompt = `You are an automation engine. Your ONLY job is to analyze the given task and call the execute_sql tool.
NEVER provide explanations. NEVER write the SQL code in markdown. NEVER chat.
ONLY make a tool call.

QUERYING RULES:
- All queries must be compatible with the standard SQLite dialect. Do NOT use commands not found in SQLite, such as QUALIFY. Use CTEs and window functions (e.g. ROW_NUMBER) for complex filtering instead.
- If the prompt contains an error from a previous attempt, read it carefully, understand the mistake (e.g. 'ambiguous column', 'syntax error', 'no such column'), and rewrite the query to fix it, then call the tool AGAIN.

Now, use the execute_sql tool.`

const stepPromptTemplate = `You are an expert data analyst. Your task is to generate a single, executable SQL query to accomplish the given task, based on the provided database schema and context from previous steps.

USER's ORIGINAL QUESTION: "%s"

DATABASE SCHEMA:
---
%s
---
%s%s
CURRENT TASK: "%s"

Based on the task, generate a valid SQLite query and call the execute_sql tool.`

const synthesizerPromptTemplate = `You are an expert data analyst. The following data has been collected from a database to answer a user's question.

USER'S ORIGINAL QUESTION: "%s"

COLLECTED DATA (JSON):
---
%s
---

TASK: Using the data above, synthesize a comprehensive and clear final answer that directly addresses the user's original question.
Provide the answer in a natural, easy-to-understand language.`

func buildPlannerPrompt(question, schema string, maxSteps int) string {
	return fmt.Sprintf(plannerPromptTemplate, question, schema, maxSteps)
}

func buildStepPrompt(question, schema, contextJSON, lastError, step string) string {
	var contextSection, errorSection string
	if contextJSON != "" {
		contextSection = fmt.Sprintf("\nCONTEXT FROM PREVIOUS STEPS (JSON):\n%s\n", contextJSON)
	}
	if lastError != "" {
		errorSection = fmt.Sprintf("\nPREVIOUS ATTEMPT's ERROR: %s\nPlease analyze this error, correct your SQL query, and try again.\n", lastError)
	}
	return fmt.Sprintf(stepPromptTemplate, question, strings.TrimSpace(schema), contextSection, errorSection, step)
}

func buildSynthesizerPrompt(question, resultsJSON string) string {
	return fmt.Sprintf(synthesizerPromptTemplate, question, resultsJSON)
}
