package domain

import "errors"

// Erros sentinela da pipeline, mapeados para status HTTP no handler.
// Use errors.Is para classificar; a mensagem embrulhada vai no corpo JSON.
var (
	// ErrValidation — entrada ausente ou inválida (400).
	ErrValidation = errors.New("entrada inválida")
	// ErrNotFound — endereço não geocodificável (404).
	ErrNotFound = errors.New("endereço não localizado")
	// ErrUpstream — falha de rede/HTTP em um provedor externo (502).
	ErrUpstream = errors.New("falha no provedor externo")
	// ErrConfig — credencial obrigatória ausente (500).
	ErrConfig = errors.New("configuração ausente")
)
