package trade

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/brojonat/hopscotch/service/token"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// AssemblyError reports a parsed trade that could not be rendered because
// one of its endpoint tokens never resolved. The trade's raw data is
// fine; only its presentation is impossible.
type AssemblyError struct {
	Signature string
	Mint      string
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("cannot assemble trade %s: token %s unresolved", e.Signature, e.Mint)
}

// Formatter renders parsed transactions into human-readable trades.
type Formatter struct {
	printer *message.Printer
	logger  *slog.Logger
}

// NewFormatter creates a formatter. Amounts group digits in English
// locale style.
func NewFormatter(logger *slog.Logger) *Formatter {
	return &Formatter{
		printer: message.NewPrinter(language.English),
		logger:  logger,
	}
}

// Format assembles one display-ready trade from a parsed transaction and
// the resolved tokens of its mints. The endpoint tokens (first swap's
// input, last swap's output) are required; a hop whose venue tokens are
// unresolved is dropped from the route rather than failing the trade.
func (f *Formatter) Format(parsed *ParsedTransaction, signature string, tokens map[string]token.TokenInfo) (*FormattedTrade, error) {
	if len(parsed.Swaps) == 0 {
		return nil, fmt.Errorf("trade %s has no swaps", signature)
	}

	first := parsed.Swaps[0]
	last := parsed.Swaps[len(parsed.Swaps)-1]

	inputToken, ok := tokens[first.InputMint]
	if !ok {
		return nil, &AssemblyError{Signature: signature, Mint: first.InputMint}
	}
	outputToken, ok := tokens[last.OutputMint]
	if !ok {
		return nil, &AssemblyError{Signature: signature, Mint: last.OutputMint}
	}

	route := make([]FormattedRoute, 0, len(parsed.Swaps))
	for _, swap := range parsed.Swaps {
		in, inOK := tokens[swap.InputMint]
		out, outOK := tokens[swap.OutputMint]
		if !inOK || !outOK {
			f.logger.Warn("dropping route hop with unresolved token",
				"signature", signature,
				"amm", swap.Amm,
				"input_mint", swap.InputMint,
				"output_mint", swap.OutputMint,
			)
			continue
		}
		route = append(route, FormattedRoute{
			Amm:         swap.Amm,
			AmmName:     AMMNameForAddress(swap.Amm),
			InputToken:  f.formattedToken(in, swap.InputAmount),
			OutputToken: f.formattedToken(out, swap.OutputAmount),
		})
	}

	timestamp := time.Now().Unix()
	if parsed.Timestamp != nil {
		timestamp = *parsed.Timestamp
	}

	return &FormattedTrade{
		Signature:   signature,
		Timestamp:   timestamp,
		InputToken:  f.formattedToken(inputToken, first.InputAmount),
		OutputToken: f.formattedToken(outputToken, last.OutputAmount),
		Route:       route,
		Slippage:    formatSlippage(parsed.SlippageBps),
		PriceImpact: f.priceImpact(parsed, signature),
	}, nil
}

func (f *Formatter) formattedToken(info token.TokenInfo, rawAmount string) FormattedToken {
	return FormattedToken{
		Address:     info.Address,
		Name:        info.Name,
		Symbol:      info.Symbol,
		Decimals:    info.Decimals,
		Image:       info.Image,
		MetadataURI: info.MetadataURI,
		Amount: FormattedAmount{
			Raw:       rawAmount,
			Formatted: f.formatAmount(rawAmount, info.Decimals),
		},
	}
}

// formatAmount scales a raw integer amount by the token's decimals and
// renders it for display. Values below one millionth use scientific
// notation so dust amounts stay legible; everything else renders as a
// grouped decimal with at most four fraction digits.
func (f *Formatter) formatAmount(raw string, decimals uint8) string {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw
	}
	scaled := value / math.Pow10(int(decimals))

	if scaled > 0 && scaled < 1e-6 {
		return strconv.FormatFloat(scaled, 'e', 4, 64)
	}

	fraction := int(decimals)
	if fraction > 4 {
		fraction = 4
	}
	return f.printer.Sprint(number.Decimal(scaled, number.Scale(fraction)))
}

// priceImpact is the relative difference between the quoted output and
// what the route actually delivered, as a percentage. Without a quote
// there is nothing to compare against.
func (f *Formatter) priceImpact(parsed *ParsedTransaction, signature string) string {
	if parsed.QuotedOutAmount == nil {
		return "Unknown"
	}
	quoted, err := strconv.ParseFloat(*parsed.QuotedOutAmount, 64)
	if err != nil || quoted == 0 {
		f.logger.Warn("unusable quoted amount", "signature", signature, "quoted", *parsed.QuotedOutAmount)
		return "Unknown"
	}
	actual, err := strconv.ParseFloat(parsed.ActualOutAmount, 64)
	if err != nil {
		return "Unknown"
	}
	impact := math.Abs(quoted-actual) / quoted * 100
	return fmt.Sprintf("%.2f%%", impact)
}

// formatSlippage renders slippage tolerance in percent from basis points.
func formatSlippage(slippageBps *string) string {
	if slippageBps == nil {
		return "Unknown"
	}
	bps, err := strconv.ParseFloat(*slippageBps, 64)
	if err != nil {
		return "Unknown"
	}
	return strconv.FormatFloat(bps/100, 'f', -1, 64) + "%"
}
