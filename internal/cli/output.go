// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-seckey.
//
// go-seckey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package cli

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeremyhahn/go-seckey/pkg/keychain"
)

// OutputFormat defines the output format type
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
)

// Printer handles formatted output
type Printer struct {
	format OutputFormat
	writer io.Writer
}

// NewPrinter creates a new Printer
func NewPrinter(format string, writer io.Writer) *Printer {
	return &Printer{
		format: OutputFormat(strings.ToLower(format)),
		writer: writer,
	}
}

// keyInfo is the serialized view of a key.
type keyInfo struct {
	ID             string    `json:"id" yaml:"id"`
	Ref            string    `json:"ref" yaml:"ref"`
	Curve          string    `json:"curve" yaml:"curve"`
	Signature      string    `json:"signature_algorithm,omitempty" yaml:"signature_algorithm,omitempty"`
	Cipher         string    `json:"cipher_algorithm,omitempty" yaml:"cipher_algorithm,omitempty"`
	Policy         string    `json:"policy" yaml:"policy"`
	Backend        string    `json:"backend" yaml:"backend"`
	HardwareBacked bool      `json:"hardware_backed" yaml:"hardware_backed"`
	DeviceID       string    `json:"device_id,omitempty" yaml:"device_id,omitempty"`
	Created        time.Time `json:"created" yaml:"created"`
	PublicKey      string    `json:"public_key" yaml:"public_key"`
}

func newKeyInfo(kp *keychain.KeyPair) keyInfo {
	spec := kp.Spec()
	return keyInfo{
		ID:             kp.ID().String(),
		Ref:            kp.Ref().String(),
		Curve:          string(spec.Curve),
		Signature:      string(spec.Signature),
		Cipher:         string(spec.Cipher),
		Policy:         kp.Policy().String(),
		Backend:        kp.Backend().String(),
		HardwareBacked: kp.HardwareBacked(),
		DeviceID:       kp.DeviceID(),
		Created:        kp.Created().UTC(),
		PublicKey:      base64.StdEncoding.EncodeToString(kp.PublicBytes()),
	}
}

// PrintKey prints detailed key information
func (p *Printer) PrintKey(kp *keychain.KeyPair) error {
	info := newKeyInfo(kp)
	switch p.format {
	case OutputFormatJSON, OutputFormatYAML:
		return p.print(info)
	case OutputFormatText:
		fmt.Fprintf(p.writer, "Key Information:\n")
		fmt.Fprintf(p.writer, "  ID:         %s\n", info.ID)
		fmt.Fprintf(p.writer, "  Ref:        %s\n", info.Ref)
		fmt.Fprintf(p.writer, "  Spec:       %s\n", kp.Spec())
		fmt.Fprintf(p.writer, "  Policy:     %s\n", info.Policy)
		fmt.Fprintf(p.writer, "  Backend:    %s\n", info.Backend)
		if info.DeviceID != "" {
			fmt.Fprintf(p.writer, "  Device:     %s\n", info.DeviceID)
		}
		fmt.Fprintf(p.writer, "  Created:    %s\n", info.Created.Format(time.RFC3339))
		fmt.Fprintf(p.writer, "  Public Key: %s\n", info.PublicKey)
		return nil
	default:
		return p.unknownFormat()
	}
}

// PrintKeyList prints a list of keys
func (p *Printer) PrintKeyList(pairs []*keychain.KeyPair) error {
	switch p.format {
	case OutputFormatJSON, OutputFormatYAML:
		keys := make([]keyInfo, len(pairs))
		for i, kp := range pairs {
			keys[i] = newKeyInfo(kp)
		}
		return p.print(map[string]any{"keys": keys})
	case OutputFormatText:
		if len(pairs) == 0 {
			fmt.Fprintln(p.writer, "No keys found")
			return nil
		}
		fmt.Fprintf(p.writer, "%-30s %-8s %-10s %s\n", "ID", "CURVE", "BACKEND", "POLICY")
		fmt.Fprintln(p.writer, strings.Repeat("-", 80))
		for _, kp := range pairs {
			fmt.Fprintf(p.writer, "%-30s %-8s %-10s %s\n",
				kp.ID(), kp.Spec().Curve, kp.Backend(), kp.Policy())
		}
		return nil
	default:
		return p.unknownFormat()
	}
}

// PrintSuccess prints a success message
func (p *Printer) PrintSuccess(message string) error {
	switch p.format {
	case OutputFormatJSON, OutputFormatYAML:
		return p.print(map[string]any{
			"status":  "success",
			"message": message,
		})
	case OutputFormatText:
		fmt.Fprintln(p.writer, message)
		return nil
	default:
		return p.unknownFormat()
	}
}

// PrintError prints an error message
func (p *Printer) PrintError(err error) error {
	switch p.format {
	case OutputFormatJSON, OutputFormatYAML:
		return p.print(map[string]any{
			"status": "error",
			"error":  err.Error(),
		})
	default:
		fmt.Fprintf(p.writer, "Error: %v\n", err)
		return nil
	}
}

// PrintSignature prints a signature (base64 encoded)
func (p *Printer) PrintSignature(sig []byte) error {
	return p.printEncoded("signature", sig)
}

// PrintCiphertext prints an ECIES envelope (base64 encoded)
func (p *Printer) PrintCiphertext(ct []byte) error {
	return p.printEncoded("ciphertext", ct)
}

// PrintVerification prints the outcome of a signature check
func (p *Printer) PrintVerification(valid bool) error {
	switch p.format {
	case OutputFormatJSON, OutputFormatYAML:
		return p.print(map[string]any{"valid": valid})
	case OutputFormatText:
		if valid {
			fmt.Fprintln(p.writer, "Signature valid")
		} else {
			fmt.Fprintln(p.writer, "Signature invalid")
		}
		return nil
	default:
		return p.unknownFormat()
	}
}

// PrintPlaintext prints decrypted data. Text output writes the bytes as is.
func (p *Printer) PrintPlaintext(pt []byte) error {
	switch p.format {
	case OutputFormatJSON, OutputFormatYAML:
		return p.print(map[string]any{
			"plaintext": base64.StdEncoding.EncodeToString(pt),
		})
	case OutputFormatText:
		_, err := p.writer.Write(pt)
		if err == nil && (len(pt) == 0 || pt[len(pt)-1] != '\n') {
			_, err = fmt.Fprintln(p.writer)
		}
		return err
	default:
		return p.unknownFormat()
	}
}

// PrintPublicKey prints an exported public key. Binary formats are base64
// encoded; PEM and JWK are printed as is.
func (p *Printer) PrintPublicKey(format string, data []byte, binary bool) error {
	value := string(data)
	if binary {
		value = base64.StdEncoding.EncodeToString(data)
	}
	switch p.format {
	case OutputFormatJSON, OutputFormatYAML:
		return p.print(map[string]any{
			"format":     format,
			"public_key": value,
		})
	case OutputFormatText:
		fmt.Fprint(p.writer, value)
		if !strings.HasSuffix(value, "\n") {
			fmt.Fprintln(p.writer)
		}
		return nil
	default:
		return p.unknownFormat()
	}
}

// PrintValue prints an arbitrary structure. Text output uses YAML.
func (p *Printer) PrintValue(v any) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(v)
	case OutputFormatYAML, OutputFormatText:
		return p.printYAML(v)
	default:
		return p.unknownFormat()
	}
}

func (p *Printer) printEncoded(field string, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	switch p.format {
	case OutputFormatJSON, OutputFormatYAML:
		return p.print(map[string]any{field: encoded})
	case OutputFormatText:
		fmt.Fprintln(p.writer, encoded)
		return nil
	default:
		return p.unknownFormat()
	}
}

func (p *Printer) print(v any) error {
	if p.format == OutputFormatYAML {
		return p.printYAML(v)
	}
	return p.printJSON(v)
}

// printJSON prints data as indented JSON
func (p *Printer) printJSON(v any) error {
	encoder := json.NewEncoder(p.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (p *Printer) printYAML(v any) error {
	encoder := yaml.NewEncoder(p.writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return err
	}
	return encoder.Close()
}

func (p *Printer) unknownFormat() error {
	return fmt.Errorf("unknown output format: %s", p.format)
}
