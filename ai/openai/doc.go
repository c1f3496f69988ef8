// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package openai embeds course text through langchaingo against any server
// speaking the OpenAI embeddings API: Ollama, vLLM, LocalAI or OpenAI itself.
//
// Inputs longer than ai.Config.MaxInputRunes are cut on a rune boundary, so
// CJK lecture text is never split inside a character.
//
//	provider, err := openai.NewProvider(ai.NewConfig(
//	    ai.WithEmbeddingHost("http://localhost:11434"),
//	    ai.WithRequestTimeout(30*time.Second),
//	), openai.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer provider.Close()
package openai
