package llm

import (
	"fmt"
	"time"
)

// Persona is the system prompt that gives the assistant its voice.
func Persona(name string) string {
	return fmt.Sprintf(`Você é a %s. Fale como uma pessoa real, educada e prestativa.
Diretrizes:
- Linguagem simples, direta e frases curtas.
- Se o usuário apenas saudar (Oi, Boa noite), responda naturalmente sem pesquisar nada.
- Nunca confunda seu nome com criptomoedas ou leitura de íris.
- Use os "DADOS REAIS (HOJE)" fornecidos na mensagem como fonte principal de verdade.
- Se a busca não trouxer nada, diga que as informações oficiais ainda não foram liberadas.
- Aceite correções do usuário na hora.`, name)
}

var weekdays = [...]string{"Domingo", "Segunda-feira", "Terça-feira", "Quarta-feira", "Quinta-feira", "Sexta-feira", "Sábado"}

var months = [...]string{"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho", "Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro"}

// FormatDate renders t the way Brazilians say it, e.g. "Sábado, 10 de Janeiro de 2026".
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%s, %d de %s de %d", weekdays[t.Weekday()], t.Day(), months[t.Month()-1], t.Year())
}
