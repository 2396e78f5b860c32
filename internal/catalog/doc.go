/*
Package catalog is the registry of invocable commands.

Commands come from three sources, registered explicitly by name:

  - builtin: in-process handlers (list, help, about, env)
  - config: the "commands" section of commander.json
  - file: YAML definitions under the configured command directories

File commands take their name from the path relative to the command
directory, with nested directories joined by ':' (cache/clear.yaml becomes
"cache:clear"). A later source replaces an earlier one with the same name.

Every read applies the filter policy: commands matching the excluded or
ignored lists, or belonging to the commander itself, are invisible. Get
cannot tell an absent command from a filtered one. Disabled commands are
listed but flagged, and the invoker refuses to run them.

# File Format

	description: Flush the application cache
	help: Removes every item from the configured cache store.
	run: php artisan cache:clear
	arguments:
	  - name: store
	    default: file
	options:
	  - name: tags
	    accepts_value: true
	dev_only: false
	timeout: 120

"run" is split into an argv without a shell. "argv" may be given instead.
*/
package catalog
