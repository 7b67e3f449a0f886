// Package assistant is the root of an AI-assistant backend: an Agent that
// resolves LLM tool-call rounds against a remote tool server, and a Skill
// Engine that learns reusable step sequences from successful runs.
//
// # Services
//
// Two binaries compose the system:
//
//	cmd/agentd        - single-turn Agent Orchestrator over HTTP
//	cmd/skillengined  - skill retrieval, execution, learning, and feedback repair
//
// A third binary, cmd/skillctl, offers operator tooling (reprocessing
// existing skills after a threshold or prompt change).
//
// # Packages
//
//	pkg/agentcore  - Agent Orchestrator (tool-call loop)
//	pkg/model      - Model Client (LLM parse() calls)
//	pkg/tool       - Tool Adapter (remote tool server session + schema normalization)
//	pkg/skill      - shared data model (Skill, SkillVersion, SkillRun)
//	pkg/skillstore - Skill Store (SQL persistence, vector index)
//	pkg/embedder   - Embedding Provider
//	pkg/retriever  - Skill Retriever
//	pkg/executor   - Skill Executor
//	pkg/learner    - Skill Learner (async generalisation + merge/insert)
//	pkg/feedback   - Feedback Repair
//	pkg/server     - HTTP surfaces for both services
package assistant
